package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"plantmaint/apperr"
)

// Field names shared by every collection.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// The From*Fields converters never fail outright: a field that cannot be
// interpreted is left at its zero value and reported in the returned error
// as one or more *apperr.DataShapeError values.

type fieldReader struct {
	collection string
	id         string
	fields     map[string]interface{}
	issues     []error
}

func newReader(collection, id string, fields map[string]interface{}) *fieldReader {
	return &fieldReader{collection: collection, id: id, fields: fields}
}

func (r *fieldReader) str(key string) string {
	switch v := r.fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (r *fieldReader) boolean(key string, def bool) bool {
	if v, ok := r.fields[key].(bool); ok {
		return v
	}
	return def
}

func (r *fieldReader) timestamp(key string) *time.Time {
	raw, ok := r.fields[key]
	if !ok || raw == nil {
		return nil
	}
	t, ok := ToTime(raw)
	if !ok {
		r.issues = append(r.issues, &apperr.DataShapeError{
			Collection: r.collection, ID: r.id, Field: key, Value: raw,
		})
		return nil
	}
	return &t
}

func (r *fieldReader) err() error {
	return errors.Join(r.issues...)
}

// ToTime interprets the timestamp representations the store backends
// produce: time values, RFC 3339 or YYYY-MM-DD strings, and Unix milliseconds.
func ToTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case string:
		s := strings.TrimSpace(t)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts, true
		}
		if d, err := time.Parse(DateLayout, s); err == nil {
			return d, true
		}
		return time.Time{}, false
	case int64:
		return time.UnixMilli(t), true
	case int:
		return time.UnixMilli(int64(t)), true
	case float64:
		return time.UnixMilli(int64(t)), true
	}
	return time.Time{}, false
}

// OrderFromFields builds a ServiceOrder from stored fields.
func OrderFromFields(id string, fields map[string]interface{}) (ServiceOrder, error) {
	r := newReader(CollectionServiceOrders, id, fields)
	statusText := r.str("status")
	priority, _ := ParsePriority(r.str("priority"))
	o := ServiceOrder{
		ID:                 id,
		OrderNumber:        r.str("orderNumber"),
		Status:             NormalizeOrderStatus(statusText),
		StatusText:         statusText,
		Priority:           priority,
		ServiceType:        r.str("serviceType"),
		Equipment:          r.str("equipment"),
		EquipmentID:        r.str("equipmentId"),
		Location:           r.str("location"),
		Sector:             r.str("sector"),
		Technician:         r.str("technician"),
		Requester:          r.str("requester"),
		ServiceDate:        r.str("serviceDate"),
		ProblemDescription: r.str("problemDescription"),
		Observations:       r.str("observations"),
		TaskID:             r.str("taskId"),
		CreatedBy:          r.str("createdBy"),
		CreatedAt:          r.timestamp(FieldCreatedAt),
		UpdatedAt:          r.timestamp(FieldUpdatedAt),
	}
	return o, r.err()
}

// Fields returns the stored representation of o, without id and timestamps.
func (o ServiceOrder) Fields() map[string]interface{} {
	status := o.StatusText
	if l := o.Status.Label(); l != "" {
		status = l
	}
	f := map[string]interface{}{
		"orderNumber":        o.OrderNumber,
		"status":             status,
		"priority":           o.Priority.Label(),
		"serviceType":        o.ServiceType,
		"equipment":          o.Equipment,
		"equipmentId":        o.EquipmentID,
		"location":           o.Location,
		"sector":             o.Sector,
		"technician":         o.Technician,
		"requester":          o.Requester,
		"serviceDate":        o.ServiceDate,
		"problemDescription": o.ProblemDescription,
		"observations":       o.Observations,
	}
	if o.TaskID != "" {
		f["taskId"] = o.TaskID
	}
	if o.CreatedBy != "" {
		f["createdBy"] = o.CreatedBy
	}
	return f
}

// TaskFromFields builds a PreventiveTask from stored fields.
func TaskFromFields(id string, fields map[string]interface{}) (PreventiveTask, error) {
	r := newReader(CollectionPreventiveTasks, id, fields)
	freq, _ := ParseFrequency(r.str("frequency"))
	t := PreventiveTask{
		ID:                id,
		Name:              r.str("name"),
		Equipment:         r.str("equipment"),
		Frequency:         freq,
		NextDate:          r.str("nextDate"),
		Description:       r.str("description"),
		Status:            NormalizeTaskStatus(r.str("status")),
		LastCompletedDate: r.str("lastCompletedDate"),
		CompletedAt:       r.timestamp("completedAt"),
		CreatedAt:         r.timestamp(FieldCreatedAt),
		UpdatedAt:         r.timestamp(FieldUpdatedAt),
	}
	return t, r.err()
}

// Fields returns the stored representation of t.
func (t PreventiveTask) Fields() map[string]interface{} {
	f := map[string]interface{}{
		"name":        t.Name,
		"equipment":   t.Equipment,
		"frequency":   string(t.Frequency),
		"nextDate":    t.NextDate,
		"description": t.Description,
		"status":      string(t.Status),
	}
	if t.LastCompletedDate != "" {
		f["lastCompletedDate"] = t.LastCompletedDate
	}
	if t.CompletedAt != nil {
		f["completedAt"] = *t.CompletedAt
	}
	return f
}

// EquipmentFromFields builds an Equipment from stored fields.
func EquipmentFromFields(id string, fields map[string]interface{}) (Equipment, error) {
	r := newReader(CollectionEquipments, id, fields)
	status, _ := ParseEquipmentStatus(r.str("status"))
	e := Equipment{
		ID:              id,
		Name:            r.str("name"),
		Model:           r.str("model"),
		Serial:          r.str("serial"),
		Status:          status,
		Location:        r.str("location"),
		Sector:          r.str("sector"),
		LastMaintenance: r.str("lastMaintenance"),
		NextMaintenance: r.str("nextMaintenance"),
		Notes:           r.str("notes"),
		CreatedAt:       r.timestamp(FieldCreatedAt),
		UpdatedAt:       r.timestamp(FieldUpdatedAt),
	}
	return e, r.err()
}

// Fields returns the stored representation of e.
func (e Equipment) Fields() map[string]interface{} {
	return map[string]interface{}{
		"name":            e.Name,
		"model":           e.Model,
		"serial":          e.Serial,
		"status":          string(e.Status),
		"location":        e.Location,
		"sector":          e.Sector,
		"lastMaintenance": e.LastMaintenance,
		"nextMaintenance": e.NextMaintenance,
		"notes":           e.Notes,
	}
}

// SectorFromFields builds a Sector.
func SectorFromFields(id string, fields map[string]interface{}) Sector {
	r := newReader(CollectionSectors, id, fields)
	return Sector{ID: id, Name: r.str("name"), Active: r.boolean("active", true)}
}

// MaintainerFromFields builds a Maintainer.
func MaintainerFromFields(id string, fields map[string]interface{}) Maintainer {
	r := newReader(CollectionMaintainers, id, fields)
	return Maintainer{ID: id, Name: r.str("name"), Active: r.boolean("active", true)}
}

// UserFromFields builds a User.
func UserFromFields(id string, fields map[string]interface{}) (User, error) {
	r := newReader(CollectionUsers, id, fields)
	u := User{
		ID:          id,
		Email:       r.str("email"),
		DisplayName: r.str("displayName"),
		Role:        UserRole(r.str("role")),
		UserProfile: UserProfile{
			FirstName:  r.str("firstName"),
			LastName:   r.str("lastName"),
			Phone:      r.str("phone"),
			Department: r.str("department"),
			Position:   r.str("position"),
			EmployeeID: r.str("employee_id"),
		},
		LastLogin: r.timestamp("lastLogin"),
		CreatedAt: r.timestamp(FieldCreatedAt),
	}
	return u, r.err()
}

// Fields returns the stored representation of u.
func (u User) Fields() map[string]interface{} {
	f := map[string]interface{}{
		"email":       u.Email,
		"displayName": u.DisplayName,
		"role":        string(u.Role),
	}
	for k, v := range u.UserProfile.Fields() {
		if v != "" {
			f[k] = v
		}
	}
	if u.LastLogin != nil {
		f["lastLogin"] = *u.LastLogin
	}
	return f
}

// Fields returns the stored profile fields, empty ones included.
func (p UserProfile) Fields() map[string]interface{} {
	return map[string]interface{}{
		"firstName":   p.FirstName,
		"lastName":    p.LastName,
		"phone":       p.Phone,
		"department":  p.Department,
		"position":    p.Position,
		"employee_id": p.EmployeeID,
	}
}

// AuditLogFromFields builds an AuditLog.
func AuditLogFromFields(id string, fields map[string]interface{}) AuditLog {
	r := newReader(CollectionAuditLogs, id, fields)
	return AuditLog{
		ID:        id,
		UserID:    r.str("userId"),
		Action:    r.str("action"),
		Details:   r.str("details"),
		Timestamp: r.timestamp(FieldCreatedAt),
	}
}
