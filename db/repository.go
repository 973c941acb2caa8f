// Package db is the record store layer: the Store interface, its Firestore,
// MongoDB and in-memory backends, and the typed Repository the rest of the
// application uses.
package db

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"plantmaint/apperr"
	"plantmaint/models"
)

// DefaultSectors seed the sectors collection when it is empty.
var DefaultSectors = []string{"Produção", "Manutenção", "Qualidade", "Administrativo", "Logística", "TI", "Segurança"}

// DefaultMaintainers seed the maintainers collection when it is empty.
var DefaultMaintainers = []string{"João Silva", "Maria Santos", "Pedro Oliveira", "Ana Costa", "Carlos Ferreira"}

// Repository maps models onto Store records.
type Repository struct {
	store Store
}

// NewRepository wraps store.
func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// Store exposes the underlying store.
func (r *Repository) Store() Store { return r.store }

func warnShape(collection, id string, err error) {
	if err != nil {
		log.WithFields(log.Fields{"collection": collection, "id": id}).WithError(err).Warn("stored record has malformed fields")
	}
}

// --- Service orders ---

// OrderFilter narrows the server-side order query. Zero values are ignored.
type OrderFilter struct {
	Technician  string
	Sector      string
	EquipmentID string
	CreatedBy   string
	StartDate   *time.Time
	EndDate     *time.Time
}

func (f OrderFilter) predicates() []Predicate {
	var preds []Predicate
	if f.Technician != "" {
		preds = append(preds, Where("technician", OpEqual, f.Technician))
	}
	if f.Sector != "" {
		preds = append(preds, Where("sector", OpEqual, f.Sector))
	}
	if f.EquipmentID != "" {
		preds = append(preds, Where("equipmentId", OpEqual, f.EquipmentID))
	}
	if f.CreatedBy != "" {
		preds = append(preds, Where("createdBy", OpEqual, f.CreatedBy))
	}
	if f.StartDate != nil {
		preds = append(preds, Where(models.FieldCreatedAt, OpGreaterEqual, *f.StartDate))
	}
	if f.EndDate != nil {
		preds = append(preds, Where(models.FieldCreatedAt, OpLessEqual, *f.EndDate))
	}
	return preds
}

var newestFirst = &OrderBy{Field: models.FieldCreatedAt, Desc: true}

func ordersFromRecords(records []Record) []models.ServiceOrder {
	orders := make([]models.ServiceOrder, 0, len(records))
	for _, rec := range records {
		o, err := models.OrderFromFields(rec.ID, rec.Fields)
		warnShape(models.CollectionServiceOrders, rec.ID, err)
		orders = append(orders, o)
	}
	return orders
}

// CreateOrder stores a new order. A taken orderNumber is reported as a
// conflicting ValidationError.
func (r *Repository) CreateOrder(ctx context.Context, o models.ServiceOrder) (string, error) {
	id, err := r.store.CreateUnique(ctx, models.CollectionServiceOrders, "orderNumber", o.Fields())
	if errors.Is(err, ErrAlreadyExists) {
		return "", &apperr.ValidationError{
			Field:    "orderNumber",
			Message:  "Order number " + o.OrderNumber + " is already in use",
			Conflict: true,
			Err:      err,
		}
	}
	if err != nil {
		return "", apperr.Store("create order", err)
	}
	return id, nil
}

// GetOrder fetches one order.
func (r *Repository) GetOrder(ctx context.Context, id string) (*models.ServiceOrder, error) {
	rec, err := r.store.Get(ctx, models.CollectionServiceOrders, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("order", id)
	}
	if err != nil {
		return nil, apperr.Store("get order", err)
	}
	o, shapeErr := models.OrderFromFields(rec.ID, rec.Fields)
	warnShape(models.CollectionServiceOrders, rec.ID, shapeErr)
	return &o, nil
}

// ListOrders returns orders matching f, newest first.
func (r *Repository) ListOrders(ctx context.Context, f OrderFilter) ([]models.ServiceOrder, error) {
	records, err := r.store.Query(ctx, models.CollectionServiceOrders, f.predicates(), newestFirst)
	if err != nil {
		return nil, apperr.Store("list orders", err)
	}
	return ordersFromRecords(records), nil
}

// UpdateOrder writes fields onto an existing order.
func (r *Repository) UpdateOrder(ctx context.Context, id string, fields map[string]interface{}) error {
	err := r.store.Update(ctx, models.CollectionServiceOrders, id, fields)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("order", id)
	}
	return apperr.Store("update order", err)
}

// WatchOrders streams the orders matching f, newest first. Each value is the
// full current list.
func (r *Repository) WatchOrders(ctx context.Context, f OrderFilter) (<-chan []models.ServiceOrder, error) {
	records, err := r.store.Subscribe(ctx, models.CollectionServiceOrders, f.predicates(), newestFirst)
	if err != nil {
		return nil, apperr.Store("subscribe orders", err)
	}
	out := make(chan []models.ServiceOrder)
	go func() {
		defer close(out)
		for snap := range records {
			select {
			case out <- ordersFromRecords(snap):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// --- Preventive tasks ---

// ListTasks returns all preventive tasks by due date, earliest first.
func (r *Repository) ListTasks(ctx context.Context) ([]models.PreventiveTask, error) {
	records, err := r.store.Query(ctx, models.CollectionPreventiveTasks, nil, &OrderBy{Field: "nextDate"})
	if err != nil {
		return nil, apperr.Store("list tasks", err)
	}
	tasks := make([]models.PreventiveTask, 0, len(records))
	for _, rec := range records {
		t, err := models.TaskFromFields(rec.ID, rec.Fields)
		warnShape(models.CollectionPreventiveTasks, rec.ID, err)
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// GetTask fetches one preventive task.
func (r *Repository) GetTask(ctx context.Context, id string) (*models.PreventiveTask, error) {
	rec, err := r.store.Get(ctx, models.CollectionPreventiveTasks, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("task", id)
	}
	if err != nil {
		return nil, apperr.Store("get task", err)
	}
	t, shapeErr := models.TaskFromFields(rec.ID, rec.Fields)
	warnShape(models.CollectionPreventiveTasks, rec.ID, shapeErr)
	return &t, nil
}

// CreateTask stores a new preventive task.
func (r *Repository) CreateTask(ctx context.Context, t models.PreventiveTask) (string, error) {
	id, err := r.store.Create(ctx, models.CollectionPreventiveTasks, t.Fields())
	if err != nil {
		return "", apperr.Store("create task", err)
	}
	return id, nil
}

// UpdateTask writes fields onto an existing task in one write.
func (r *Repository) UpdateTask(ctx context.Context, id string, fields map[string]interface{}) error {
	err := r.store.Update(ctx, models.CollectionPreventiveTasks, id, fields)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("task", id)
	}
	return apperr.Store("update task", err)
}

// --- Equipment ---

// ListEquipment returns equipment filtered by status and sector, sorted by name.
func (r *Repository) ListEquipment(ctx context.Context, status models.EquipmentStatus, sector string) ([]models.Equipment, error) {
	var preds []Predicate
	if status != "" {
		preds = append(preds, Where("status", OpEqual, string(status)))
	}
	if sector != "" {
		preds = append(preds, Where("sector", OpEqual, sector))
	}
	records, err := r.store.Query(ctx, models.CollectionEquipments, preds, nil)
	if err != nil {
		return nil, apperr.Store("list equipment", err)
	}

	items := make([]models.Equipment, 0, len(records))
	for _, rec := range records {
		e, err := models.EquipmentFromFields(rec.ID, rec.Fields)
		warnShape(models.CollectionEquipments, rec.ID, err)
		items = append(items, e)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items, nil
}

// GetEquipment fetches one asset.
func (r *Repository) GetEquipment(ctx context.Context, id string) (*models.Equipment, error) {
	rec, err := r.store.Get(ctx, models.CollectionEquipments, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("equipment", id)
	}
	if err != nil {
		return nil, apperr.Store("get equipment", err)
	}
	e, shapeErr := models.EquipmentFromFields(rec.ID, rec.Fields)
	warnShape(models.CollectionEquipments, rec.ID, shapeErr)
	return &e, nil
}

// SaveEquipment creates e when it has no id and updates it otherwise.
func (r *Repository) SaveEquipment(ctx context.Context, e models.Equipment) (string, error) {
	if e.ID == "" {
		id, err := r.store.Create(ctx, models.CollectionEquipments, e.Fields())
		if err != nil {
			return "", apperr.Store("create equipment", err)
		}
		return id, nil
	}
	err := r.store.Update(ctx, models.CollectionEquipments, e.ID, e.Fields())
	if errors.Is(err, ErrNotFound) {
		return "", apperr.NotFound("equipment", e.ID)
	}
	if err != nil {
		return "", apperr.Store("update equipment", err)
	}
	return e.ID, nil
}

// DeleteEquipment removes an asset. Orders that reference it keep their copy.
func (r *Repository) DeleteEquipment(ctx context.Context, id string) error {
	err := r.store.Delete(ctx, models.CollectionEquipments, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("equipment", id)
	}
	return apperr.Store("delete equipment", err)
}

// EquipmentHistory returns the orders raised against an asset, newest first.
func (r *Repository) EquipmentHistory(ctx context.Context, equipmentID string) ([]models.ServiceOrder, error) {
	return r.ListOrders(ctx, OrderFilter{EquipmentID: equipmentID})
}

// --- Reference lists ---

// seedNames fills an empty collection with names and returns the records.
func (r *Repository) seedNames(ctx context.Context, collection string, names []string) ([]Record, error) {
	records, err := r.store.Query(ctx, collection, nil, &OrderBy{Field: "name"})
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		return records, nil
	}

	log.WithField("collection", collection).Info("🌱 Seeding default reference list")
	for _, name := range names {
		if _, err := r.store.Create(ctx, collection, map[string]interface{}{"name": name, "active": true}); err != nil {
			return nil, err
		}
	}
	return r.store.Query(ctx, collection, nil, &OrderBy{Field: "name"})
}

// ListSectors returns the sectors, seeding the defaults on first use.
func (r *Repository) ListSectors(ctx context.Context) ([]models.Sector, error) {
	records, err := r.seedNames(ctx, models.CollectionSectors, DefaultSectors)
	if err != nil {
		return nil, apperr.Store("list sectors", err)
	}
	sectors := make([]models.Sector, 0, len(records))
	for _, rec := range records {
		sectors = append(sectors, models.SectorFromFields(rec.ID, rec.Fields))
	}
	return sectors, nil
}

// ListMaintainers returns the maintainers, seeding the defaults on first use.
func (r *Repository) ListMaintainers(ctx context.Context) ([]models.Maintainer, error) {
	records, err := r.seedNames(ctx, models.CollectionMaintainers, DefaultMaintainers)
	if err != nil {
		return nil, apperr.Store("list maintainers", err)
	}
	maintainers := make([]models.Maintainer, 0, len(records))
	for _, rec := range records {
		maintainers = append(maintainers, models.MaintainerFromFields(rec.ID, rec.Fields))
	}
	return maintainers, nil
}

// --- Users and passwords ---

// CreateUser stores a user; the email must be unused.
func (r *Repository) CreateUser(ctx context.Context, u models.User) (string, error) {
	id, err := r.store.CreateUnique(ctx, models.CollectionUsers, "email", u.Fields())
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	rec, err := r.store.Get(ctx, models.CollectionUsers, id)
	if err != nil {
		return nil, err
	}
	u, shapeErr := models.UserFromFields(rec.ID, rec.Fields)
	warnShape(models.CollectionUsers, rec.ID, shapeErr)
	return &u, nil
}

// GetUserByEmail looks a user up by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	records, err := r.store.Query(ctx, models.CollectionUsers, []Predicate{Where("email", OpEqual, email)}, nil)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	u, shapeErr := models.UserFromFields(records[0].ID, records[0].Fields)
	warnShape(models.CollectionUsers, records[0].ID, shapeErr)
	return &u, nil
}

// ListUsers returns every user, oldest first.
func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	records, err := r.store.Query(ctx, models.CollectionUsers, nil, &OrderBy{Field: models.FieldCreatedAt})
	if err != nil {
		return nil, apperr.Store("list users", err)
	}
	users := make([]models.User, 0, len(records))
	for _, rec := range records {
		u, err := models.UserFromFields(rec.ID, rec.Fields)
		warnShape(models.CollectionUsers, rec.ID, err)
		users = append(users, u)
	}
	return users, nil
}

// UpdateUser writes fields onto a user.
func (r *Repository) UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.store.Update(ctx, models.CollectionUsers, id, fields)
}

// DeleteUser removes a user record.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	return r.store.Delete(ctx, models.CollectionUsers, id)
}

const firstAdminKey = "firstAdmin"

// ClaimFirstAdmin reserves the administrator role for the first account.
// Exactly one caller ever gets ok; it keeps the returned claim id to
// release the reservation if that account is never created.
func (r *Repository) ClaimFirstAdmin(ctx context.Context, email string) (string, bool, error) {
	id, err := r.store.CreateUnique(ctx, models.CollectionSettings, "key", map[string]interface{}{
		"key":   firstAdminKey,
		"email": email,
	})
	if errors.Is(err, ErrAlreadyExists) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Store("claim first admin", err)
	}
	return id, true, nil
}

// ReleaseFirstAdmin drops a claim made by ClaimFirstAdmin.
func (r *Repository) ReleaseFirstAdmin(ctx context.Context, claimID string) error {
	err := r.store.Delete(ctx, models.CollectionSettings, claimID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// StorePasswordHash stores a password hash for a user.
func (r *Repository) StorePasswordHash(ctx context.Context, userID, passwordHash string) error {
	return r.store.Set(ctx, models.CollectionPasswords, userID, map[string]interface{}{
		"userId":       userID,
		"passwordHash": passwordHash,
	})
}

// GetPasswordHash retrieves a password hash for a user.
func (r *Repository) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	rec, err := r.store.Get(ctx, models.CollectionPasswords, userID)
	if err != nil {
		return "", err
	}
	if hash, ok := rec.Fields["passwordHash"].(string); ok {
		return hash, nil
	}
	return "", ErrNotFound
}

// --- Audit ---

// LogAudit appends an audit entry. Failures are logged, not returned.
func (r *Repository) LogAudit(ctx context.Context, userID, action, details string) {
	_, err := r.store.Create(ctx, models.CollectionAuditLogs, map[string]interface{}{
		"userId":  userID,
		"action":  action,
		"details": details,
	})
	entry := log.WithFields(log.Fields{"user": userID, "action": action})
	if err != nil {
		entry.WithError(err).Warn("failed to write audit log")
		return
	}
	entry.Info(details)
}

// ListAuditLogs returns the newest audit entries first, at most limit.
func (r *Repository) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	records, err := r.store.Query(ctx, models.CollectionAuditLogs, nil, newestFirst)
	if err != nil {
		return nil, apperr.Store("list audit logs", err)
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	logs := make([]models.AuditLog, 0, len(records))
	for _, rec := range records {
		logs = append(logs, models.AuditLogFromFields(rec.ID, rec.Fields))
	}
	return logs, nil
}
