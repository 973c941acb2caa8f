package handlers

import (
	"fmt"
	"net/http"
	"time"

	"plantmaint/auth"
	"plantmaint/config"
	"plantmaint/db"
	"plantmaint/metrics"
	"plantmaint/middleware"
	"plantmaint/models"
	"plantmaint/services"
)

// Router wires every controller onto one ServeMux.
type Router struct {
	mux   *http.ServeMux
	paths map[string]bool
}

// NewRouter builds the services on repo and registers all routes. clock
// may be nil for the wall clock.
func NewRouter(cfg *config.Config, repo *db.Repository, identity auth.Identity, m *metrics.Metrics, clock services.Clock) *Router {
	orders := services.NewOrderService(repo, m)
	tasks := services.NewTaskService(repo, clock, m)
	dash := services.NewDashboardService(repo, tasks, clock, m)

	authHandler := NewAuthHandler(identity, repo, m)
	orderHandler := NewOrderHandler(orders)
	taskHandler := NewTaskHandler(tasks)
	equipmentHandler := NewEquipmentHandler(services.NewEquipmentService(repo))
	referenceHandler := NewReferenceHandler(services.NewReferenceService(repo))
	dashboardHandler := NewDashboardHandler(dash, cfg.App.SuiteName, cfg.App.DefaultPeriodDays)
	users := services.NewUserService(repo)
	profileHandler := NewProfileHandler(users, orders)
	adminHandler := NewAdminHandler(users, identity, repo)
	liveHandler := NewLiveHandler(orders, dash, m, cfg.CORS.AllowedOrigins)

	rt := &Router{mux: http.NewServeMux(), paths: make(map[string]bool)}

	// Public routes (no authentication required)
	rt.handle("/health", http.HandlerFunc(handleHealth))
	rt.handle("/metrics", m.Handler())
	rt.handle("/api/auth/register", http.HandlerFunc(authHandler.Register))
	rt.handle("/api/auth/login", http.HandlerFunc(authHandler.Login))
	rt.handle("/api/auth/refresh", http.HandlerFunc(authHandler.RefreshToken))

	// Protected routes (authentication required)
	authn := middleware.AuthMiddleware(identity)
	protected := func(path string, h http.HandlerFunc) {
		rt.handle(path, authn(h))
	}
	managers := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	managerOnly := func(path string, h http.HandlerFunc) {
		rt.handle(path, authn(managers(h)))
	}
	adminOnly := func(path string, h http.HandlerFunc) {
		rt.handle(path, authn(middleware.RequireRole(models.RoleAdmin)(h)))
	}

	protected("/api/auth/logout", authHandler.Logout)
	protected("/api/auth/me", authHandler.Me)
	protected("/api/auth/change-password", authHandler.ChangePassword)
	protected("/api/auth/profile", profileHandler.Update)
	protected("/api/auth/me/stats", profileHandler.Stats)

	protected("/api/orders", orderHandler.List)
	protected("/api/orders/get", orderHandler.Get)
	protected("/api/orders/recent", orderHandler.Recent)
	protected("/api/orders/create", orderHandler.Create)
	managerOnly("/api/orders/update", orderHandler.Update)
	managerOnly("/api/orders/status", orderHandler.UpdateStatus)
	protected("/api/orders/live", liveHandler.Orders)

	protected("/api/tasks", taskHandler.List)
	protected("/api/tasks/create", taskHandler.Create)
	protected("/api/tasks/complete", taskHandler.Complete)
	protected("/api/tasks/order-draft", taskHandler.OrderDraft)

	protected("/api/equipment", equipmentHandler.List)
	protected("/api/equipment/history", equipmentHandler.History)
	managerOnly("/api/equipment/save", equipmentHandler.Save)
	managerOnly("/api/equipment/delete", equipmentHandler.Delete)

	protected("/api/sectors", referenceHandler.Sectors)
	protected("/api/maintainers", referenceHandler.Maintainers)

	protected("/api/dashboard", dashboardHandler.Summary)
	protected("/api/dashboard/export", dashboardHandler.Export)

	adminOnly("/api/admin/users", adminHandler.GetUsers)
	adminOnly("/api/admin/users/role", adminHandler.SetRole)
	adminOnly("/api/admin/users/reset-password", adminHandler.ResetPassword)
	adminOnly("/api/admin/audit", adminHandler.AuditLog)

	return rt
}

func (rt *Router) handle(path string, h http.Handler) {
	rt.paths[path] = true
	rt.mux.Handle(path, h)
}

// Known reports whether path is a registered route.
func (rt *Router) Known(path string) bool { return rt.paths[path] }

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

// Health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%d,"version":"1.0.0"}`, time.Now().Unix())
}
