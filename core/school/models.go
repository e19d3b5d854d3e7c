package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edutrack/core"
)

type BillingCycle string

const (
	Monthly BillingCycle = "monthly"
	Yearly  BillingCycle = "yearly"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusInactive Status = "inactive"
)

// Plan is a subscription plan offered to schools.
type Plan struct {
	ID           string          `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	PriceMonthly float64         `db:"price_monthly" json:"price_monthly"`
	PriceYearly  float64         `db:"price_yearly" json:"price_yearly"`
	StudentLimit int             `db:"student_limit" json:"student_limit"`
	Features     core.StringList `db:"features" json:"features"`
	IsActive     bool            `db:"is_active" json:"is_active"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

type PlanInput struct {
	Name         string   `json:"name" validate:"required,max=100"`
	PriceMonthly float64  `json:"price_monthly" validate:"gte=0"`
	PriceYearly  float64  `json:"price_yearly" validate:"gte=0"`
	StudentLimit int      `json:"student_limit" validate:"gte=0"`
	Features     []string `json:"features" validate:"dive,required"`
	IsActive     *bool    `json:"is_active"`
}

func (in *PlanInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	features := make([]string, 0, len(in.Features))
	for _, f := range in.Features {
		if f = core.CleanString(f); f != "" {
			features = append(features, f)
		}
	}
	in.Features = features
	return validate.Struct(in)
}

// School is a tenant.
type School struct {
	ID                string       `db:"id" json:"id"`
	Name              string       `db:"name" json:"name"`
	Code              string       `db:"code" json:"code"`
	Email             string       `db:"email" json:"email"`
	Phone             string       `db:"phone" json:"phone"`
	Address           string       `db:"address" json:"address"`
	PlanID            string       `db:"plan_id" json:"plan_id"`
	BillingCycle      BillingCycle `db:"billing_cycle" json:"billing_cycle"`
	SubscriptionStart core.Date    `db:"subscription_start" json:"subscription_start"`
	SubscriptionEnd   core.Date    `db:"subscription_end" json:"subscription_end"`
	Status            Status       `db:"status" json:"status"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
}

// Lapsed reports whether the subscription ended before the given day.
func (s School) Lapsed(today core.Date) bool {
	return s.Status == StatusActive && s.SubscriptionEnd.Before(today.Time)
}

// SubscriptionWindow returns the subscription period of a cycle starting on start.
func SubscriptionWindow(cycle BillingCycle, start core.Date) (core.Date, core.Date) {
	if cycle == Yearly {
		return start, start.AddDate(1, 0, 0)
	}
	return start, start.AddDate(0, 1, 0)
}

type NewSchool struct {
	Name         string `json:"name" validate:"required,max=200"`
	Code         string `json:"code" validate:"required,alphanum_,max=30"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,max=30"`
	Address      string `json:"address" validate:"required"`
	PlanID       string `json:"plan_id" validate:"required,uuid"`
	BillingCycle string `json:"billing_cycle" validate:"required,oneof=monthly yearly"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Address = core.CleanString(ns.Address)
	ns.PlanID = core.CleanString(ns.PlanID, true /* lower */)
	if ns.BillingCycle == "" {
		ns.BillingCycle = string(Monthly)
	}
	return validate.Struct(ns)
}

// UpdateSchool edits the contact details, plan and status; the subscription window is kept.
type UpdateSchool struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,max=30"`
	Address string `json:"address" validate:"required"`
	PlanID  string `json:"plan_id" validate:"required,uuid"`
	Status  string `json:"status" validate:"required,oneof=active expired inactive"`
}

func (us *UpdateSchool) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.Phone = core.CleanString(us.Phone)
	us.Address = core.CleanString(us.Address)
	us.PlanID = core.CleanString(us.PlanID, true /* lower */)
	return validate.Struct(us)
}

// Stats summarizes the schools for the super admin dashboard.
type Stats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Expired  int `json:"expired"`
	Inactive int `json:"inactive"`
	Plans    int `json:"plans"`
}
