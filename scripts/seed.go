package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"plantmaint/apperr"
	"plantmaint/auth"
	"plantmaint/config"
	"plantmaint/db"
	"plantmaint/models"
	"plantmaint/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	ctx := context.Background()
	store, err := db.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open record store")
	}
	defer store.Close()
	repo := db.NewRepository(store)

	log.Info("🌱 Starting database seeding...")

	if err := seedReferences(ctx, repo); err != nil {
		log.WithError(err).Fatal("Failed to seed reference lists")
	}
	if err := seedUsers(ctx, cfg, repo); err != nil {
		log.WithError(err).Fatal("Failed to seed users")
	}
	if err := seedEquipment(ctx, repo); err != nil {
		log.WithError(err).Fatal("Failed to seed equipment")
	}
	if err := seedTasks(ctx, repo); err != nil {
		log.WithError(err).Fatal("Failed to seed preventive tasks")
	}

	log.Info("✅ Database seeding completed successfully!")
}

// seedReferences fills the sector and maintainer lists with the defaults
// when they are empty.
func seedReferences(ctx context.Context, repo *db.Repository) error {
	sectors, err := repo.ListSectors(ctx)
	if err != nil {
		return err
	}
	maintainers, err := repo.ListMaintainers(ctx)
	if err != nil {
		return err
	}
	log.Infof("  ✓ %d sectors, %d maintainers", len(sectors), len(maintainers))
	return nil
}

func seedUsers(ctx context.Context, cfg *config.Config, repo *db.Repository) error {
	identity := auth.NewService(repo, auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration), auth.ServiceOptions{})

	users := []struct {
		Email    string
		Password string
		Role     models.UserRole
	}{
		{getEnv("SEED_ADMIN_EMAIL", "admin@plantmaint.local"), getEnv("SEED_ADMIN_PASSWORD", "Admin1234"), models.RoleAdmin},
		{"gestor@plantmaint.local", "Gestor1234", models.RoleManager},
		{"tecnico@plantmaint.local", "Tecnico1234", models.RoleTechnician},
	}

	for _, u := range users {
		sess, err := identity.Register(ctx, u.Email, u.Password)
		var ae *apperr.AuthError
		if errors.As(err, &ae) && ae.Code == apperr.CodeEmailInUse {
			log.Infof("  - User already exists: %s", u.Email)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
		if sess.User.Role != u.Role {
			if err := repo.UpdateUser(ctx, sess.User.ID, map[string]interface{}{"role": string(u.Role)}); err != nil {
				return fmt.Errorf("failed to set role for %s: %w", u.Email, err)
			}
		}
		log.Infof("  ✓ Created user: %s (role: %s)", u.Email, u.Role)
	}
	return nil
}

func seedEquipment(ctx context.Context, repo *db.Repository) error {
	existing, err := repo.ListEquipment(ctx, "", "")
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Infof("  - %d equipment records already present", len(existing))
		return nil
	}

	items := []models.Equipment{
		{Name: "Compressor 01", Model: "GA-30", Serial: "CMP-2019-001", Status: models.EquipmentActive, Location: "Casa de Máquinas", Sector: "Produção"},
		{Name: "Bomba Centrífuga 02", Model: "KSB-50", Serial: "BMB-2020-014", Status: models.EquipmentActive, Location: "Estação de Água", Sector: "Produção"},
		{Name: "Empilhadeira 03", Model: "H25", Serial: "EMP-2018-007", Status: models.EquipmentMaintenance, Location: "Armazém", Sector: "Logística"},
		{Name: "Gerador 04", Model: "C150", Serial: "GER-2021-002", Status: models.EquipmentActive, Location: "Subestação", Sector: "Manutenção"},
	}
	for _, e := range items {
		if _, err := repo.SaveEquipment(ctx, e); err != nil {
			return fmt.Errorf("failed to create equipment %s: %w", e.Name, err)
		}
		log.Infof("  ✓ Created equipment: %s", e.Name)
	}
	return nil
}

func seedTasks(ctx context.Context, repo *db.Repository) error {
	existing, err := repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Infof("  - %d preventive tasks already present", len(existing))
		return nil
	}

	tasks := services.NewTaskService(repo, nil, nil)
	today := time.Now()
	reqs := []models.TaskRequest{
		{Name: "Troca de óleo", Equipment: "Compressor 01", Frequency: "Trimestral", NextDate: models.FormatDate(today.AddDate(0, 0, -2))},
		{Name: "Inspeção de selos", Equipment: "Bomba Centrífuga 02", Frequency: "Mensal", NextDate: models.FormatDate(today.AddDate(0, 0, 5))},
		{Name: "Verificação de baterias", Equipment: "Empilhadeira 03", Frequency: "Semanal", NextDate: models.FormatDate(today.AddDate(0, 0, 1))},
		{Name: "Teste em carga", Equipment: "Gerador 04", Frequency: "Semestral", NextDate: models.FormatDate(today.AddDate(0, 2, 0))},
	}
	for _, req := range reqs {
		if _, err := tasks.Create(ctx, req); err != nil {
			return fmt.Errorf("failed to create task %s: %w", req.Name, err)
		}
		log.Infof("  ✓ Created task: %s (%s)", req.Name, req.Frequency)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
