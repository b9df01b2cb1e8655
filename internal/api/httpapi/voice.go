package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/correlation"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/pipeline"
)

// voiceTranscriptRequest carries a speech-to-text result already produced
// upstream — this gateway treats voice audio as opaque and
// only ever sees text plus metadata, never raw bytes to decode.
type voiceTranscriptRequest struct {
	Transcript      string  `json:"transcript"`
	AudioArtifactID *string `json:"audioArtifactId,omitempty"`
}

// handleVoiceTranscript runs a transcribed utterance through the same
// pipeline a chat message uses. The request's audioArtifactId is decoded
// but not stored: the persisted user turn carries no audio artifact
// reference.
func (s *Server) handleVoiceTranscript(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	sess, err := s.loadOwnedSession(r, p.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req voiceTranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Transcript == "" {
		badRequest(w, r, "transcript is required")
		return
	}

	correlationID := correlation.FromContext(r.Context())
	out, err := s.pipe.SendMessage(r.Context(), pipeline.SendMessageInput{
		TenantID:       p.TenantID,
		SessionID:      sess.ID,
		Content:        req.Transcript,
		IdempotencyKey: idempotencyKey(r),
		CorrelationID:  correlationID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		messageView: toMessageView(out.Message),
		Metadata: sendMessageMetadata{
			Provider:      out.Provider,
			TokensIn:      out.TokensIn,
			TokensOut:     out.TokensOut,
			LatencyMs:     out.LatencyMs,
			CorrelationID: out.CorrelationID,
			UsedFallback:  out.UsedFallback,
		},
	})
}

type storeAudioRequest struct {
	Type       domain.AudioArtifactType `json:"type"`
	FilePath   *string                  `json:"filePath,omitempty"`
	FileSize   *int64                   `json:"fileSize,omitempty"`
	DurationMs *int                     `json:"durationMs,omitempty"`
	Format     *string                  `json:"format,omitempty"`
	SampleRate *int                     `json:"sampleRate,omitempty"`
	Provider   *string                  `json:"provider,omitempty"`
	Transcript *string                  `json:"transcript,omitempty"`
	LatencyMs  *int                     `json:"latencyMs,omitempty"`
}

type audioArtifactView struct {
	ID         string                   `json:"id"`
	SessionID  string                   `json:"sessionId"`
	Type       domain.AudioArtifactType `json:"type"`
	FilePath   *string                  `json:"filePath,omitempty"`
	FileSize   *int64                   `json:"fileSize,omitempty"`
	DurationMs *int                     `json:"durationMs,omitempty"`
	Format     *string                  `json:"format,omitempty"`
	SampleRate *int                     `json:"sampleRate,omitempty"`
	Provider   *string                  `json:"provider,omitempty"`
	Transcript *string                  `json:"transcript,omitempty"`
	LatencyMs  *int                     `json:"latencyMs,omitempty"`
	CreatedAt  time.Time                `json:"createdAt"`
}

func toAudioArtifactView(a domain.AudioArtifact) audioArtifactView {
	return audioArtifactView{
		ID: a.ID, SessionID: a.SessionID, Type: a.Type, FilePath: a.FilePath,
		FileSize: a.FileSize, DurationMs: a.DurationMs, Format: a.Format,
		SampleRate: a.SampleRate, Provider: a.Provider, Transcript: a.Transcript,
		LatencyMs: a.LatencyMs, CreatedAt: a.CreatedAt,
	}
}

// audioArtifactMetadataView is the leaner projection GET .../metadata
// returns: technical facts about the recording, no transcript text.
type audioArtifactMetadataView struct {
	ID         string                   `json:"id"`
	Type       domain.AudioArtifactType `json:"type"`
	FileSize   *int64                   `json:"fileSize,omitempty"`
	DurationMs *int                     `json:"durationMs,omitempty"`
	Format     *string                  `json:"format,omitempty"`
	SampleRate *int                     `json:"sampleRate,omitempty"`
	Provider   *string                  `json:"provider,omitempty"`
	LatencyMs  *int                     `json:"latencyMs,omitempty"`
	CreatedAt  time.Time                `json:"createdAt"`
}

func (s *Server) handleVoiceStoreAudio(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	sess, err := s.loadOwnedSession(r, p.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req storeAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if req.Type != domain.AudioUserInput && req.Type != domain.AudioAssistantOutput {
		badRequest(w, r, "type must be USER_INPUT or ASSISTANT_OUTPUT")
		return
	}

	created, err := s.store.CreateAudioArtifact(r.Context(), domain.AudioArtifact{
		ID:         uuid.New().String(),
		SessionID:  sess.ID,
		Type:       req.Type,
		FilePath:   req.FilePath,
		FileSize:   req.FileSize,
		DurationMs: req.DurationMs,
		Format:     req.Format,
		SampleRate: req.SampleRate,
		Provider:   req.Provider,
		Transcript: req.Transcript,
		LatencyMs:  req.LatencyMs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAudioArtifactView(created))
}

func (s *Server) loadOwnedArtifact(r *http.Request, tenantID, sessionID, artifactID string) (domain.AudioArtifact, error) {
	sess, err := s.loadOwnedSession(r, tenantID, sessionID)
	if err != nil {
		return domain.AudioArtifact{}, err
	}
	artifact, err := s.store.GetAudioArtifact(r.Context(), artifactID)
	if err != nil {
		return domain.AudioArtifact{}, err
	}
	if artifact.SessionID != sess.ID {
		return domain.AudioArtifact{}, apperrors.NotFound("audio artifact not found")
	}
	return artifact, nil
}

func (s *Server) handleVoiceGetArtifact(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	artifact, err := s.loadOwnedArtifact(r, p.TenantID, r.PathValue("id"), r.PathValue("artifactId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAudioArtifactView(artifact))
}

func (s *Server) handleVoiceGetArtifactMetadata(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	artifact, err := s.loadOwnedArtifact(r, p.TenantID, r.PathValue("id"), r.PathValue("artifactId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, audioArtifactMetadataView{
		ID: artifact.ID, Type: artifact.Type, FileSize: artifact.FileSize,
		DurationMs: artifact.DurationMs, Format: artifact.Format, SampleRate: artifact.SampleRate,
		Provider: artifact.Provider, LatencyMs: artifact.LatencyMs, CreatedAt: artifact.CreatedAt,
	})
}
