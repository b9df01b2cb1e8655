// Package validation holds the request-shape validators for the
// gateway's HTTP boundary, adapted from the teacher's
// AuthRequestValidator (regexp-based field checks returning plain
// errors) into per-resource validators for tenants, agents, and
// messages.
package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// TenantValidator validates tenant creation requests.
type TenantValidator struct{}

func NewTenantValidator() *TenantValidator { return &TenantValidator{} }

func (v *TenantValidator) ValidateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > 200 {
		return fmt.Errorf("name must be at most 200 characters long, got %d", len(name))
	}
	return nil
}

func (v *TenantValidator) ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}
	if len(email) > 255 {
		return fmt.Errorf("email must be at most 255 characters long, got %d", len(email))
	}
	return nil
}

func (v *TenantValidator) ValidateCreateTenant(name, email string) error {
	if err := v.ValidateName(name); err != nil {
		return err
	}
	return v.ValidateEmail(email)
}

// AgentValidator validates agent configuration requests.
type AgentValidator struct{}

func NewAgentValidator() *AgentValidator { return &AgentValidator{} }

func (v *AgentValidator) ValidateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > 200 {
		return fmt.Errorf("name must be at most 200 characters long, got %d", len(name))
	}
	return nil
}

func (v *AgentValidator) ValidateProvider(p domain.ProviderName) error {
	switch p {
	case domain.ProviderVendorA, domain.ProviderVendorB:
		return nil
	default:
		return fmt.Errorf("unknown provider %q", p)
	}
}

func (v *AgentValidator) ValidateTemperature(temperature float64) error {
	if temperature < 0 || temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", temperature)
	}
	return nil
}

func (v *AgentValidator) ValidateMaxTokens(maxTokens int) error {
	if maxTokens <= 0 {
		return errors.New("maxTokens must be positive")
	}
	if maxTokens > 32000 {
		return fmt.Errorf("maxTokens must be at most 32000, got %d", maxTokens)
	}
	return nil
}

func (v *AgentValidator) ValidateCreateAgent(a domain.Agent) error {
	if err := v.ValidateName(a.Name); err != nil {
		return err
	}
	if err := v.ValidateProvider(a.PrimaryProvider); err != nil {
		return err
	}
	if a.FallbackProvider != nil {
		if err := v.ValidateProvider(*a.FallbackProvider); err != nil {
			return err
		}
	}
	if err := v.ValidateTemperature(a.Temperature); err != nil {
		return err
	}
	return v.ValidateMaxTokens(a.MaxTokens)
}

// MessageValidator validates inbound message-send requests.
type MessageValidator struct{}

func NewMessageValidator() *MessageValidator { return &MessageValidator{} }

func (v *MessageValidator) ValidateContent(content string) error {
	if content == "" {
		return errors.New("content cannot be empty")
	}
	if len(content) > 32000 {
		return fmt.Errorf("content must be at most 32000 characters long, got %d", len(content))
	}
	return nil
}

// ValidateIdempotencyKey allows an absent key but bounds the length of one
// supplied.
func (v *MessageValidator) ValidateIdempotencyKey(key *string) error {
	if key == nil {
		return nil
	}
	if *key == "" {
		return errors.New("idempotencyKey, if present, cannot be empty")
	}
	if len(*key) > 200 {
		return fmt.Errorf("idempotencyKey must be at most 200 characters long, got %d", len(*key))
	}
	return nil
}

func (v *MessageValidator) ValidateSendMessage(content string, idempotencyKey *string) error {
	if err := v.ValidateContent(content); err != nil {
		return err
	}
	return v.ValidateIdempotencyKey(idempotencyKey)
}
