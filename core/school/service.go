package school

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/edutrack/core"
)

type (
	Service interface {
		ListPlans(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Plan, error)
		GetPlan(ctx context.Context, scope core.Scope, id string) (Plan, error)
		CreatePlan(ctx context.Context, scope core.Scope, in PlanInput) (Plan, error)
		UpdatePlan(ctx context.Context, scope core.Scope, id string, in PlanInput) (Plan, error)
		TogglePlan(ctx context.Context, scope core.Scope, id string) (Plan, error)
		DeletePlan(ctx context.Context, scope core.Scope, id string) error

		List(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]School, error)
		Get(ctx context.Context, scope core.Scope, id string) (School, error)
		Create(ctx context.Context, scope core.Scope, ns NewSchool) (School, error)
		Update(ctx context.Context, scope core.Scope, id string, us UpdateSchool) (School, error)
		Delete(ctx context.Context, scope core.Scope, id string) error

		// ExpireSubscriptions marks the active schools whose subscription ended before now as expired.
		ExpireSubscriptions(ctx context.Context, now time.Time) (int, error)
		Stats(ctx context.Context, scope core.Scope) (Stats, error)
	}

	service struct {
		plans   core.Store[Plan]
		schools core.Store[School]
		mailSvc core.EmailService
		nowFunc func() time.Time
	}
)

var _ Service = (*service)(nil)

var defaultPlanOrdering = []core.DBOrdering{{Field: "price_monthly", Ascending: true}}

func NewService(plans core.Store[Plan], schools core.Store[School], mailSvc core.EmailService) Service {
	return &service{
		plans:   plans,
		schools: schools,
		mailSvc: mailSvc,
		nowFunc: time.Now,
	}
}

// Plans are global: any role may read them, only super admins may write them.

func (svc *service) ListPlans(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Plan, error) {
	if len(ordering) == 0 {
		ordering = defaultPlanOrdering
	}
	return svc.plans.List(ctx, scope, filter, ordering)
}

func (svc *service) GetPlan(ctx context.Context, scope core.Scope, id string) (Plan, error) {
	return svc.plans.Get(ctx, scope, id)
}

func (svc *service) CreatePlan(ctx context.Context, scope core.Scope, in PlanInput) (Plan, error) {
	if !scope.All {
		return Plan{}, core.ErrForbidden
	}
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	return svc.plans.Insert(ctx, Plan{
		ID:           core.NewID(),
		Name:         in.Name,
		PriceMonthly: in.PriceMonthly,
		PriceYearly:  in.PriceYearly,
		StudentLimit: in.StudentLimit,
		Features:     in.Features,
		IsActive:     isActive,
		CreatedAt:    svc.nowFunc().UTC(),
	})
}

func (svc *service) UpdatePlan(ctx context.Context, scope core.Scope, id string, in PlanInput) (Plan, error) {
	if !scope.All {
		return Plan{}, core.ErrForbidden
	}
	plan, err := svc.plans.Get(ctx, scope, id)
	if err != nil {
		return Plan{}, err
	}
	plan.Name = in.Name
	plan.PriceMonthly = in.PriceMonthly
	plan.PriceYearly = in.PriceYearly
	plan.StudentLimit = in.StudentLimit
	plan.Features = in.Features
	if in.IsActive != nil {
		plan.IsActive = *in.IsActive
	}
	return svc.plans.Update(ctx, scope, plan)
}

func (svc *service) TogglePlan(ctx context.Context, scope core.Scope, id string) (Plan, error) {
	if !scope.All {
		return Plan{}, core.ErrForbidden
	}
	plan, err := svc.plans.Get(ctx, scope, id)
	if err != nil {
		return Plan{}, err
	}
	plan.IsActive = !plan.IsActive
	return svc.plans.Update(ctx, scope, plan)
}

func (svc *service) DeletePlan(ctx context.Context, scope core.Scope, id string) error {
	if !scope.All {
		return core.ErrForbidden
	}
	return svc.plans.Delete(ctx, scope, id)
}

func (svc *service) List(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]School, error) {
	return svc.schools.List(ctx, scope, filter, ordering)
}

func (svc *service) Get(ctx context.Context, scope core.Scope, id string) (School, error) {
	return svc.schools.Get(ctx, scope, id)
}

func (svc *service) checkPlan(ctx context.Context, scope core.Scope, planID string) error {
	if _, err := svc.plans.Get(ctx, scope, planID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NewValidationError(err, core.FieldError{Field: "plan_id", Error: "unknown plan"})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, scope core.Scope, ns NewSchool) (School, error) {
	if !scope.All {
		return School{}, core.ErrForbidden
	}
	if err := svc.checkPlan(ctx, scope, ns.PlanID); err != nil {
		return School{}, err
	}

	now := svc.nowFunc().UTC()
	start, end := SubscriptionWindow(BillingCycle(ns.BillingCycle), core.DateOf(now))
	sch, err := svc.schools.Insert(ctx, School{
		ID:                core.NewID(),
		Name:              ns.Name,
		Code:              ns.Code,
		Email:             ns.Email,
		Phone:             ns.Phone,
		Address:           ns.Address,
		PlanID:            ns.PlanID,
		BillingCycle:      BillingCycle(ns.BillingCycle),
		SubscriptionStart: start,
		SubscriptionEnd:   end,
		Status:            StatusActive,
		CreatedAt:         now,
	})
	if err != nil {
		return School{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: sch.Name, Address: sch.Email}},
		Subject:      "Welcome to EduTrack",
		TemplateName: "school_welcome",
		TemplateData: map[string]string{
			"Name":              sch.Name,
			"Code":              sch.Code,
			"BillingCycle":      string(sch.BillingCycle),
			"SubscriptionStart": sch.SubscriptionStart.String(),
			"SubscriptionEnd":   sch.SubscriptionEnd.String(),
		},
	})
	return sch, nil
}

func (svc *service) Update(ctx context.Context, scope core.Scope, id string, us UpdateSchool) (School, error) {
	if !scope.All {
		return School{}, core.ErrForbidden
	}
	sch, err := svc.schools.Get(ctx, scope, id)
	if err != nil {
		return School{}, err
	}
	if us.PlanID != sch.PlanID {
		if err = svc.checkPlan(ctx, scope, us.PlanID); err != nil {
			return School{}, err
		}
	}
	sch.Name = us.Name
	sch.Email = us.Email
	sch.Phone = us.Phone
	sch.Address = us.Address
	sch.PlanID = us.PlanID
	sch.Status = Status(us.Status)
	return svc.schools.Update(ctx, scope, sch)
}

func (svc *service) Delete(ctx context.Context, scope core.Scope, id string) error {
	if !scope.All {
		return core.ErrForbidden
	}
	return svc.schools.Delete(ctx, scope, id)
}

func (svc *service) ExpireSubscriptions(ctx context.Context, now time.Time) (int, error) {
	scope := core.Scope{All: true}
	active, err := svc.schools.List(ctx, scope, core.QueryFilter{}.With("status", StatusActive), nil)
	if err != nil {
		return 0, errors.Wrap(err, "listing active schools")
	}

	today := core.DateOf(now)
	var expired int
	for _, sch := range active {
		if !sch.Lapsed(today) {
			continue
		}
		sch.Status = StatusExpired
		if _, err = svc.schools.Update(ctx, scope, sch); err != nil {
			return expired, errors.Wrapf(err, "expiring school %s", sch.Code)
		}
		expired++
	}
	return expired, nil
}

func (svc *service) Stats(ctx context.Context, scope core.Scope) (Stats, error) {
	var stats Stats
	g, gctx := errgroup.WithContext(ctx)

	count := func(dst *int, filter core.QueryFilter) {
		g.Go(func() error {
			n, err := svc.schools.Count(gctx, scope, filter)
			*dst = n
			return err
		})
	}
	count(&stats.Total, core.QueryFilter{})
	count(&stats.Active, core.QueryFilter{}.With("status", StatusActive))
	count(&stats.Expired, core.QueryFilter{}.With("status", StatusExpired))
	count(&stats.Inactive, core.QueryFilter{}.With("status", StatusInactive))
	g.Go(func() error {
		n, err := svc.plans.Count(gctx, scope, core.QueryFilter{})
		stats.Plans = n
		return err
	})

	if err := g.Wait(); err != nil {
		return Stats{}, errors.Wrap(err, "counting schools")
	}
	return stats, nil
}
