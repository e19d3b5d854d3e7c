package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/school"
)

type schoolApi struct {
	srv *server
	svc school.Service
}

func registerSchoolAPI(e *echo.Echo, s *server) {
	api := schoolApi{srv: s, svc: s.deps.Schools}
	superAdmin := s.requireRole(auth.RoleSuperAdmin)

	sg := e.Group("/schools", superAdmin)
	sg.GET("", api.querySchools)
	sg.POST("", api.createSchool)
	sg.GET("/:id", api.retrieveSchool)
	sg.PUT("/:id", api.updateSchool)
	sg.DELETE("/:id", api.destroySchool)

	pg := e.Group("/plans", superAdmin)
	pg.GET("", api.queryPlans)
	pg.POST("", api.createPlan)
	pg.GET("/:id", api.retrievePlan)
	pg.PUT("/:id", api.updatePlan)
	pg.DELETE("/:id", api.destroyPlan)
	pg.POST("/:id/toggle", api.togglePlan)
}

// Schools

func (api *schoolApi) querySchools(ctx echo.Context) error {
	filter, ordering := bindQuery(ctx, "status", "plan_id", "billing_cycle")
	schools, err := api.svc.List(ctx.Request().Context(), contextSnapshot(ctx).Scope(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *schoolApi) createSchool(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	sch, err := api.svc.Create(ctx.Request().Context(), contextSnapshot(ctx).Scope(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *schoolApi) retrieveSchool(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	sch, err := api.svc.Get(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id)
	if err != nil {
		return errors.Wrap(err, "finding school by ID")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) updateSchool(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data school.UpdateSchool
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	if err = data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	sch, err := api.svc.Update(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) destroySchool(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Plans

func (api *schoolApi) queryPlans(ctx echo.Context) error {
	filter, ordering := bindQuery(ctx, "is_active")
	plans, err := api.svc.ListPlans(ctx.Request().Context(), contextSnapshot(ctx).Scope(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying plans")
	}
	if plans == nil {
		plans = []school.Plan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *schoolApi) createPlan(ctx echo.Context) error {
	var data school.PlanInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PlanInput")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	plan, err := api.svc.CreatePlan(ctx.Request().Context(), contextSnapshot(ctx).Scope(), data)
	if err != nil {
		return errors.Wrap(err, "creating plan")
	}
	return ctx.JSON(http.StatusCreated, plan)
}

func (api *schoolApi) retrievePlan(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	plan, err := api.svc.GetPlan(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id)
	if err != nil {
		return errors.Wrap(err, "finding plan by ID")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *schoolApi) updatePlan(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data school.PlanInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PlanInput")
	}
	if err = data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	plan, err := api.svc.UpdatePlan(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *schoolApi) togglePlan(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	plan, err := api.svc.TogglePlan(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id)
	if err != nil {
		return errors.Wrap(err, "toggling plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *schoolApi) destroyPlan(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeletePlan(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id); err != nil {
		return errors.Wrap(err, "deleting plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}
