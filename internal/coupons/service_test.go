package coupons

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/enums"
	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
)

func newCouponService(t *testing.T) Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateCouponValidation(t *testing.T) {
	svc := newCouponService(t)
	now := time.Now().UTC()

	cases := []struct {
		name  string
		input CreateCouponInput
	}{
		{
			name: "empty code",
			input: CreateCouponInput{
				Type:    enums.CouponTypePercent,
				Value:   decimal.NewFromInt(10),
				StartAt: now,
				EndAt:   now.Add(time.Hour),
			},
		},
		{
			name: "window inverted",
			input: CreateCouponInput{
				Code:    "SAVE10",
				Type:    enums.CouponTypePercent,
				Value:   decimal.NewFromInt(10),
				StartAt: now.Add(time.Hour),
				EndAt:   now,
			},
		},
		{
			name: "negative value",
			input: CreateCouponInput{
				Code:    "SAVE10",
				Type:    enums.CouponTypeFlat,
				Value:   decimal.NewFromInt(-5),
				StartAt: now,
				EndAt:   now.Add(time.Hour),
			},
		},
		{
			name: "bad type",
			input: CreateCouponInput{
				Code:    "SAVE10",
				Type:    enums.CouponType("bogus"),
				Value:   decimal.NewFromInt(10),
				StartAt: now,
				EndAt:   now.Add(time.Hour),
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateCoupon(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

// fencedCounter mirrors the repository's conditional increment under a mutex
// so the property can be raced without a database.
type fencedCounter struct {
	mu         sync.Mutex
	usageLimit int
	usedCount  int
}

func (c *fencedCounter) redeem() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.usageLimit > 0 && c.usedCount >= c.usageLimit {
		return false
	}
	c.usedCount++
	return true
}

func TestConcurrentRedeemNeverOversells(t *testing.T) {
	t.Parallel()

	const (
		limit   = 5
		callers = 100
	)
	counter := &fencedCounter{usageLimit: limit}

	var wg sync.WaitGroup
	granted := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted <- counter.redeem()
		}()
	}
	wg.Wait()
	close(granted)

	wins := 0
	for ok := range granted {
		if ok {
			wins++
		}
	}
	if wins != limit {
		t.Fatalf("granted %d redemptions, want exactly %d", wins, limit)
	}
	if counter.usedCount > limit {
		t.Fatalf("usedCount %d exceeded limit %d", counter.usedCount, limit)
	}
}
