package currency

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/db/models"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/pagination"
)

type stubRateRepo struct {
	rates map[string]decimal.Decimal
}

func (s *stubRateRepo) Create(_ context.Context, rate *models.CurrencyRate) (*models.CurrencyRate, error) {
	return rate, nil
}

func (s *stubRateRepo) Update(_ context.Context, rate *models.CurrencyRate) (*models.CurrencyRate, error) {
	return rate, nil
}

func (s *stubRateRepo) Delete(context.Context, uuid.UUID) error { return nil }

func (s *stubRateRepo) FindByID(context.Context, uuid.UUID) (*models.CurrencyRate, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRateRepo) FindRate(_ context.Context, from, to string) (*models.CurrencyRate, error) {
	rate, ok := s.rates[from+"_"+to]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.CurrencyRate{
		ID:           uuid.New(),
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         rate,
	}, nil
}

func (s *stubRateRepo) List(context.Context, pagination.Params) ([]models.CurrencyRate, error) {
	return nil, nil
}

func TestConvert(t *testing.T) {
	t.Parallel()

	repo := &stubRateRepo{rates: map[string]decimal.Decimal{
		"USD_INR": decimal.NewFromInt(83),
	}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	got, applied, err := svc.Convert(context.Background(), decimal.NewFromInt(100), "USD", "INR")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(8300)) {
		t.Fatalf("converted = %s, want 8300", got)
	}
	if applied == nil || applied.From != "USD" || applied.To != "INR" {
		t.Fatalf("unexpected applied rate: %+v", applied)
	}
	if !applied.Rate.Equal(decimal.NewFromInt(83)) {
		t.Fatalf("applied rate = %s, want 83", applied.Rate)
	}
}

func TestConvertSameCurrencyIsIdentity(t *testing.T) {
	t.Parallel()

	svc, _ := NewService(&stubRateRepo{})

	amount := decimal.RequireFromString("19.99")
	got, applied, err := svc.Convert(context.Background(), amount, "usd", "USD")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !got.Equal(amount) {
		t.Fatalf("converted = %s, want %s", got, amount)
	}
	if applied != nil {
		t.Fatalf("expected no applied rate, got %+v", applied)
	}
}

func TestConvertMissingRateIsNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := NewService(&stubRateRepo{})

	_, _, err := svc.Convert(context.Background(), decimal.NewFromInt(10), "USD", "EUR")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestConvertRoundsToTwoDecimals(t *testing.T) {
	t.Parallel()

	repo := &stubRateRepo{rates: map[string]decimal.Decimal{
		"USD_EUR": decimal.RequireFromString("0.9137"),
	}}
	svc, _ := NewService(repo)

	got, _, err := svc.Convert(context.Background(), decimal.RequireFromString("19.99"), "USD", "EUR")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	// 19.99 * 0.9137 = 18.264863 -> 18.26
	if !got.Equal(decimal.RequireFromString("18.26")) {
		t.Fatalf("converted = %s, want 18.26", got)
	}
	if got.Exponent() < -2 {
		t.Fatalf("more than two decimal places: %s", got)
	}
}

func TestCreateRateValidation(t *testing.T) {
	t.Parallel()

	svc, _ := NewService(&stubRateRepo{})

	_, err := svc.CreateRate(context.Background(), CreateRateInput{
		FromCurrency: "USD",
		ToCurrency:   "USD",
		Rate:         decimal.NewFromInt(1),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for identical pair, got %v", err)
	}

	_, err = svc.CreateRate(context.Background(), CreateRateInput{
		FromCurrency: "USD",
		ToCurrency:   "INR",
		Rate:         decimal.Zero,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero rate, got %v", err)
	}
}
