//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := models.AllModels()
	_ = db.Migrator().DropTable(cleanupModels...)
	if err := db.AutoMigrate(cleanupModels...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPostgresConcurrentOfferTransitionSingleWinner(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewCargoOfferRepository(db)

	offer := &models.CargoOffer{
		Origin:       "Concepción",
		Destination:  "Santiago",
		CargoType:    "Food Products",
		WeightKg:     1200,
		VolumeM3:     5,
		PickupDate:   time.Now(),
		DeliveryDate: time.Now().Add(72 * time.Hour),
		Status:       constants.CargoStatusPending,
		ShipperID:    1,
	}
	if err := repo.Create(offer); err != nil {
		t.Fatalf("create offer failed: %v", err)
	}

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				txRepo := repo.WithTx(tx)
				if _, err := txRepo.GetByIDForUpdate(offer.ID); err != nil {
					return err
				}
				ok, err := txRepo.TransitionStatus(offer.ID, []string{constants.CargoStatusPending}, constants.CargoStatusMatched)
				if err != nil {
					return err
				}
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
				return nil
			})
			if err != nil {
				t.Errorf("transition tx failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("exactly one transition should win, got %d", wins)
	}
}

func TestPostgresKeywordSearchIsCaseInsensitive(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewUserRepository(db)
	user := &models.User{
		Username:     "carrier-pg",
		Email:        "carrier-pg@example.com",
		PasswordHash: "x",
		Role:         constants.RoleCarrier,
		CompanyName:  "Transportes Andes",
		Status:       constants.UserStatusActive,
	}
	if err := repo.Create(user); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	rows, total, err := repo.List(UserListFilter{Keyword: "andes"})
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("ILIKE search want 1 got total=%d len=%d", total, len(rows))
	}
}
