package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/academic"
)

type academicApi struct {
	srv *server
	svc academic.Service
}

func registerAcademicAPI(e *echo.Echo, s *server) {
	api := academicApi{srv: s, svc: s.deps.Academics}

	g := e.Group("/academic-core", s.requireRole())
	g.GET("/academic-setup", api.setup)

	sg := g.Group("/sessions")
	sg.GET("", api.querySessions)
	sg.POST("", api.createSession)
	sg.GET("/current", api.currentSession)
	sg.GET("/:id", api.retrieveSession)
	sg.PUT("/:id", api.updateSession)
	sg.DELETE("/:id", api.destroySession)
	sg.POST("/:id/current", api.setCurrentSession)

	cg := g.Group("/classes")
	cg.GET("", api.queryClasses)
	cg.POST("", api.createClass)
	cg.GET("/:id", api.retrieveClass)
	cg.PUT("/:id", api.updateClass)
	cg.DELETE("/:id", api.destroyClass)

	scg := g.Group("/sections")
	scg.GET("", api.querySections)
	scg.POST("", api.createSection)
	scg.GET("/:id", api.retrieveSection)
	scg.PUT("/:id", api.updateSection)
	scg.DELETE("/:id", api.destroySection)
}

func (api *academicApi) setup(ctx echo.Context) error {
	setup, err := api.svc.Setup(ctx.Request().Context(), contextSnapshot(ctx).Scope())
	if err != nil {
		return errors.Wrap(err, "getting academic setup")
	}
	return ctx.JSON(http.StatusOK, setup)
}

// Sessions

func (api *academicApi) querySessions(ctx echo.Context) error {
	filter, ordering := bindQuery(ctx, "school_id", "is_active")
	sessions, err := api.svc.ListSessions(ctx.Request().Context(), contextSnapshot(ctx).Scope(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []academic.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *academicApi) currentSession(ctx echo.Context) error {
	sess, err := api.svc.Current(ctx.Request().Context(), contextSnapshot(ctx).Scope())
	if err != nil {
		return errors.Wrap(err, "getting current session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *academicApi) createSession(ctx echo.Context) error {
	var data academic.SessionInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionInput")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	sess, err := api.svc.CreateSession(ctx.Request().Context(), contextSnapshot(ctx).Scope(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *academicApi) retrieveSession(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	sess, err := api.svc.GetSession(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id)
	if err != nil {
		return errors.Wrap(err, "finding session by ID")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *academicApi) updateSession(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data academic.SessionInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionInput")
	}
	if err = data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	sess, err := api.svc.UpdateSession(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *academicApi) setCurrentSession(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	sess, err := api.svc.SetCurrent(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id)
	if err != nil {
		return errors.Wrap(err, "setting current session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *academicApi) destroySession(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSession(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Classes

func (api *academicApi) queryClasses(ctx echo.Context) error {
	filter, ordering := bindQuery(ctx, "school_id")
	classes, err := api.svc.ListClasses(ctx.Request().Context(), contextSnapshot(ctx).Scope(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []academic.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *academicApi) createClass(ctx echo.Context) error {
	var data academic.ClassInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassInput")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), contextSnapshot(ctx).Scope(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *academicApi) retrieveClass(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	cls, err := api.svc.GetClass(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id)
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *academicApi) updateClass(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data academic.ClassInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassInput")
	}
	if err = data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	cls, err := api.svc.UpdateClass(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *academicApi) destroyClass(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteClass(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Sections

func (api *academicApi) querySections(ctx echo.Context) error {
	filter, ordering := bindQuery(ctx, "school_id", "class_id", "is_active")
	sections, err := api.svc.ListSections(ctx.Request().Context(), contextSnapshot(ctx).Scope(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	if sections == nil {
		sections = []academic.Section{}
	}
	return ctx.JSON(http.StatusOK, sections)
}

func (api *academicApi) createSection(ctx echo.Context) error {
	var data academic.SectionInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SectionInput")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	sec, err := api.svc.CreateSection(ctx.Request().Context(), contextSnapshot(ctx).Scope(), data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, sec)
}

func (api *academicApi) retrieveSection(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	sec, err := api.svc.GetSection(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id)
	if err != nil {
		return errors.Wrap(err, "finding section by ID")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *academicApi) updateSection(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data academic.SectionInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SectionInput")
	}
	if err = data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	sec, err := api.svc.UpdateSection(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *academicApi) destroySection(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSection(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}
