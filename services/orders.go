package services

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"plantmaint/apperr"
	"plantmaint/db"
	"plantmaint/metrics"
	"plantmaint/models"
)

// RecentOrders is how many orders the recent list shows.
const RecentOrders = 5

// OrderQuery combines the store predicates with the local pass.
type OrderQuery struct {
	Server db.OrderFilter
	Local  LocalFilter
}

// OrderService creates, edits and lists service orders.
type OrderService struct {
	repo    *db.Repository
	metrics *metrics.Metrics
}

func NewOrderService(repo *db.Repository, m *metrics.Metrics) *OrderService {
	return &OrderService{repo: repo, metrics: m}
}

func orderFromRequest(req models.OrderRequest) (models.ServiceOrder, error) {
	status := models.OrderOpen
	if req.Status != "" {
		st, ok := models.ParseOrderStatus(req.Status)
		if !ok {
			return models.ServiceOrder{}, apperr.Validation("status", "unknown status "+req.Status)
		}
		status = st
	}
	priority, ok := models.ParsePriority(req.Priority)
	if !ok {
		return models.ServiceOrder{}, apperr.Validation("priority", "unknown priority "+req.Priority)
	}
	return models.ServiceOrder{
		OrderNumber:        req.OrderNumber,
		Status:             status,
		StatusText:         status.Label(),
		Priority:           priority,
		ServiceType:        req.ServiceType,
		Equipment:          req.Equipment,
		EquipmentID:        req.EquipmentID,
		Location:           req.Location,
		Sector:             req.Sector,
		Technician:         req.Technician,
		Requester:          req.Requester,
		ServiceDate:        req.ServiceDate,
		ProblemDescription: req.ProblemDescription,
		Observations:       req.Observations,
		TaskID:             req.TaskID,
	}, nil
}

// Create stores a new order. New orders are open unless the request says
// otherwise; the order number must be unused.
func (s *OrderService) Create(ctx context.Context, userID string, req models.OrderRequest) (*models.ServiceOrder, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	order, err := orderFromRequest(req)
	if err != nil {
		return nil, err
	}
	order.CreatedBy = userID

	id, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	s.metrics.OrderCreated()
	s.repo.LogAudit(ctx, userID, models.AuditOrderCreated, fmt.Sprintf("OS %s created", order.OrderNumber))

	return s.repo.GetOrder(ctx, id)
}

// Get fetches one order.
func (s *OrderService) Get(ctx context.Context, id string) (*models.ServiceOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// Update rewrites the editable fields of an order.
func (s *OrderService) Update(ctx context.Context, userID string, req models.UpdateOrderRequest) (*models.ServiceOrder, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetOrder(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if req.OrderNumber != existing.OrderNumber {
		return nil, apperr.Validation("orderNumber", "order number cannot be changed")
	}
	order, err := orderFromRequest(req.OrderRequest)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Status) == "" {
		order.Status, order.StatusText = existing.Status, existing.StatusText
	}
	if strings.TrimSpace(req.Priority) == "" {
		order.Priority = existing.Priority
	}

	fields := order.Fields()
	delete(fields, "orderNumber")
	if err := s.repo.UpdateOrder(ctx, req.ID, fields); err != nil {
		return nil, err
	}
	s.repo.LogAudit(ctx, userID, models.AuditOrderUpdated, fmt.Sprintf("OS %s updated", existing.OrderNumber))

	return s.repo.GetOrder(ctx, req.ID)
}

// UpdateStatus moves an order to status, given as stored text or a bucket
// name. Unknown statuses are rejected.
func (s *OrderService) UpdateStatus(ctx context.Context, userID, id, status string) (*models.ServiceOrder, error) {
	target, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, apperr.Validation("status", "unknown status "+status)
	}
	existing, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	label := target.Label()
	if err := s.repo.UpdateOrder(ctx, id, map[string]interface{}{"status": label}); err != nil {
		return nil, err
	}
	s.metrics.StatusChanged(label)
	s.repo.LogAudit(ctx, userID, models.AuditOrderStatus,
		fmt.Sprintf("OS %s: %s -> %s", existing.OrderNumber, existing.StatusText, label))

	log.WithFields(log.Fields{"order_id": id, "status": label}).Debug("order status changed")
	return s.repo.GetOrder(ctx, id)
}

// List runs the store query and then the local filter.
func (s *OrderService) List(ctx context.Context, q OrderQuery) ([]models.ServiceOrder, error) {
	orders, err := s.repo.ListOrders(ctx, q.Server)
	if err != nil {
		return nil, err
	}
	return q.Local.Apply(orders), nil
}

// Recent returns the newest orders.
func (s *OrderService) Recent(ctx context.Context) ([]models.ServiceOrder, error) {
	orders, err := s.repo.ListOrders(ctx, db.OrderFilter{})
	if err != nil {
		return nil, err
	}
	if len(orders) > RecentOrders {
		orders = orders[:RecentOrders]
	}
	return orders, nil
}

// UserOrderStats is the activity summary on a user's profile.
type UserOrderStats struct {
	Total     int                   `json:"total"`
	Completed int                   `json:"completed"`
	Pending   int                   `json:"pending"`
	Recent    []models.ServiceOrder `json:"recent"`
}

// UserStats counts the orders userID created. Completed is the closed
// bucket; open and pending orders both count as pending. Recent holds the
// newest RecentOrders of them.
func (s *OrderService) UserStats(ctx context.Context, userID string) (*UserOrderStats, error) {
	orders, err := s.repo.ListOrders(ctx, db.OrderFilter{CreatedBy: userID})
	if err != nil {
		return nil, err
	}
	out := &UserOrderStats{Total: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case models.OrderClosed:
			out.Completed++
		case models.OrderOpen, models.OrderPending:
			out.Pending++
		}
	}
	if len(orders) > RecentOrders {
		orders = orders[:RecentOrders]
	}
	out.Recent = orders
	return out, nil
}

// Watch streams the orders matching f; see db.Repository.WatchOrders.
func (s *OrderService) Watch(ctx context.Context, f db.OrderFilter) (<-chan []models.ServiceOrder, error) {
	return s.repo.WatchOrders(ctx, f)
}
