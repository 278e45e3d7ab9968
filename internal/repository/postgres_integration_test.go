//go:build integration

package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/joaomjbraga/shipment-management/internal/domain"
	"github.com/joaomjbraga/shipment-management/internal/persistence"
)

// startPostgres reuses TEST_DATABASE_URL when set, otherwise starts a
// throwaway Postgres 16 container.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		container, err := postgres.Run(ctx,
			"postgres:16",
			postgres.WithDatabase("shipments"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("start postgres: %v", err)
		}
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("connection string: %v", err)
		}
	}

	if err := persistence.RunMigrations(dsn, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresDeliveryLifecycle(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	deliveries := NewDeliveryRepository(pool)
	logs := NewDeliveryLogRepository(pool)

	owner := &domain.User{Name: "Ana", Email: "ana-lifecycle@example.com", PasswordHash: "hash", Role: domain.RoleCustomer}
	if err := users.Create(ctx, owner); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := users.Create(ctx, &domain.User{Name: "Dup", Email: owner.Email, PasswordHash: "hash", Role: domain.RoleCustomer}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	d := &domain.Delivery{UserID: owner.ID, Description: "monitor", Status: domain.DeliveryStatusProcessing}
	if err := deliveries.Create(ctx, d); err != nil {
		t.Fatalf("create delivery: %v", err)
	}

	updated, entry, err := deliveries.TransitionStatus(ctx, d.ID, domain.DeliveryStatusProcessing, domain.DeliveryStatusShipped)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != domain.DeliveryStatusShipped || entry.Description != "shipped" {
		t.Fatalf("unexpected transition result %+v %+v", updated, entry)
	}
	if err := logs.CreateIfStatus(ctx, &domain.DeliveryLog{DeliveryID: d.ID, Description: "at hub"}, domain.DeliveryStatusShipped); err != nil {
		t.Fatalf("manual log: %v", err)
	}
	if err := logs.CreateIfStatus(ctx, &domain.DeliveryLog{DeliveryID: d.ID, Description: "late"}, domain.DeliveryStatusDelivered); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged for conditional log, got %v", err)
	}

	_, _, err = deliveries.TransitionStatus(ctx, d.ID, domain.DeliveryStatusProcessing, domain.DeliveryStatusShipped)
	if !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}
	_, _, err = deliveries.TransitionStatus(ctx, "00000000-0000-0000-0000-000000000000", domain.DeliveryStatusShipped, domain.DeliveryStatusDelivered)
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}

	entries, err := logs.ListByDelivery(ctx, d.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(entries) != 2 || entries[0].Description != "shipped" || entries[1].Description != "at hub" {
		t.Fatalf("unexpected log order %+v", entries)
	}

	list, err := deliveries.ListWithOwner(ctx)
	if err != nil {
		t.Fatalf("list deliveries: %v", err)
	}
	if len(list) == 0 || list[0].Owner.Email != owner.Email {
		t.Fatalf("expected owner summary, got %+v", list)
	}

	if err := users.Delete(ctx, owner.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := deliveries.GetByID(ctx, d.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected cascade delete, got %v", err)
	}
}

func TestPostgresConcurrentTransitionSingleWinner(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	deliveries := NewDeliveryRepository(pool)
	logs := NewDeliveryLogRepository(pool)

	owner := &domain.User{Name: "Bia", Email: "bia-race@example.com", PasswordHash: "hash", Role: domain.RoleCustomer}
	if err := users.Create(ctx, owner); err != nil {
		t.Fatalf("create user: %v", err)
	}
	d := &domain.Delivery{UserID: owner.ID, Description: "desk", Status: domain.DeliveryStatusProcessing}
	if err := deliveries.Create(ctx, d); err != nil {
		t.Fatalf("create delivery: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := deliveries.TransitionStatus(ctx, d.ID, domain.DeliveryStatusProcessing, domain.DeliveryStatusShipped)
			switch {
			case err == nil:
				mu.Lock()
				wins++
				mu.Unlock()
			case !errors.Is(err, ErrStatusChanged):
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	entries, err := logs.ListByDelivery(ctx, d.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
}

func TestPostgresTransitionRollsBackWhenLogFails(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	deliveries := NewDeliveryRepository(pool)
	logs := NewDeliveryLogRepository(pool)

	owner := &domain.User{Name: "Rui", Email: "rui-rollback@example.com", PasswordHash: "hash", Role: domain.RoleCustomer}
	if err := users.Create(ctx, owner); err != nil {
		t.Fatalf("create user: %v", err)
	}
	d := &domain.Delivery{UserID: owner.ID, Description: "desk", Status: domain.DeliveryStatusProcessing}
	if err := deliveries.Create(ctx, d); err != nil {
		t.Fatalf("create delivery: %v", err)
	}

	setup := []string{
		`CREATE OR REPLACE FUNCTION reject_delivery_log() RETURNS trigger AS $$
         BEGIN RAISE EXCEPTION 'delivery_logs unavailable'; END;
         $$ LANGUAGE plpgsql`,
		`CREATE TRIGGER reject_delivery_log BEFORE INSERT ON delivery_logs
         FOR EACH ROW EXECUTE FUNCTION reject_delivery_log()`,
	}
	for _, stmt := range setup {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("install trigger: %v", err)
		}
	}
	dropTrigger := func() {
		_, _ = pool.Exec(context.Background(), `DROP TRIGGER IF EXISTS reject_delivery_log ON delivery_logs`)
		_, _ = pool.Exec(context.Background(), `DROP FUNCTION IF EXISTS reject_delivery_log()`)
	}
	t.Cleanup(dropTrigger)

	if _, _, err := deliveries.TransitionStatus(ctx, d.ID, domain.DeliveryStatusProcessing, domain.DeliveryStatusShipped); err == nil {
		t.Fatal("expected transition to fail when the log insert fails")
	}

	got, err := deliveries.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}
	if got.Status != domain.DeliveryStatusProcessing {
		t.Fatalf("expected status to stay processing, got %s", got.Status)
	}
	dropTrigger()

	entries, err := logs.ListByDelivery(ctx, d.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no log entries, got %+v", entries)
	}

	if _, _, err := deliveries.TransitionStatus(ctx, d.ID, domain.DeliveryStatusProcessing, domain.DeliveryStatusShipped); err != nil {
		t.Fatalf("transition after trigger removal: %v", err)
	}
}
