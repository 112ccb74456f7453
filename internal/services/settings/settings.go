package settings

import (
	"context"
	"strings"

	"csgo-pricecheck/internal/errx"
	"csgo-pricecheck/internal/models"
	"csgo-pricecheck/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/text/currency"
)

// Service reads and writes the user's API key and display currency.
type Service struct {
	kv storage.Store
}

func NewService(kv storage.Store) *Service {
	return &Service{kv: kv}
}

// Get returns the saved settings. Currency falls back to USD.
func (s *Service) Get(ctx context.Context) (models.Settings, error) {
	values, err := s.kv.Get(ctx, storage.KeyAPIKey, storage.KeyCurrency)
	if err != nil {
		return models.Settings{}, errx.Storage(err)
	}

	var out models.Settings
	if _, err := storage.Decode(values, storage.KeyAPIKey, &out.APIKey); err != nil {
		return models.Settings{}, errx.Storage(err)
	}
	if _, err := storage.Decode(values, storage.KeyCurrency, &out.Currency); err != nil {
		return models.Settings{}, errx.Storage(err)
	}
	if out.Currency == "" {
		out.Currency = models.DefaultCurrency
	}
	return out, nil
}

// Save validates and persists both settings together.
func (s *Service) Save(ctx context.Context, apiKey, currencyCode string) error {
	apiKey = strings.TrimSpace(apiKey)
	if err := ValidateAPIKey(apiKey); err != nil {
		return err
	}
	code, err := NormalizeCurrency(currencyCode)
	if err != nil {
		return err
	}

	values, err := storage.Encode(map[string]any{
		storage.KeyAPIKey:   apiKey,
		storage.KeyCurrency: code,
	})
	if err != nil {
		return errx.Storage(err)
	}
	if err := s.kv.Set(ctx, values); err != nil {
		return errx.Storage(err)
	}
	return nil
}

// ValidateAPIKey accepts only the 36 character 8-4-4-4-12 hex form.
func ValidateAPIKey(apiKey string) error {
	if apiKey == "" {
		return errx.Config("Please enter an API key")
	}
	// uuid.Parse also accepts urn:uuid:, braced and unhyphenated forms.
	if len(apiKey) != 36 {
		return errx.Config("Invalid API key format")
	}
	if _, err := uuid.Parse(apiKey); err != nil {
		return errx.Config("Invalid API key format")
	}
	return nil
}

// NormalizeCurrency upper-cases and checks an ISO 4217 code. Empty means USD.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return models.DefaultCurrency, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", errx.Config("Unknown currency " + code)
	}
	return unit.String(), nil
}
