package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/student"
)

type studentApi struct {
	srv *server
	svc student.Service
}

func registerStudentAPI(e *echo.Echo, s *server) {
	api := studentApi{srv: s, svc: s.deps.Students}
	schoolAdmin := s.requireRole(auth.RoleSchoolAdmin)

	sg := e.Group("/students", schoolAdmin)
	sg.GET("/all-students", api.queryStudents)
	sg.GET("/all-students/:id", api.retrieveStudent)
	sg.PUT("/all-students/:id", api.updateStudent)
	sg.DELETE("/all-students/:id", api.destroyStudent)
	sg.POST("/new-admission", api.admit)

	ag := e.Group("/admission-form", schoolAdmin)
	ag.GET("", api.queryApplications)
	ag.POST("", api.apply)
	ag.GET("/:id", api.retrieveApplication)
	ag.DELETE("/:id", api.destroyApplication)
	ag.POST("/:id/review", api.review)
}

// Students

func (api *studentApi) queryStudents(ctx echo.Context) error {
	filter, ordering := bindQuery(ctx, "class_id", "section", "status")
	students, err := api.svc.List(ctx.Request().Context(), contextSnapshot(ctx).Scope(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) admit(ctx echo.Context) error {
	var data student.StudentInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentInput")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	st, err := api.svc.Create(ctx.Request().Context(), contextSnapshot(ctx).Scope(), data)
	if err != nil {
		return errors.Wrap(err, "admitting student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *studentApi) retrieveStudent(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	st, err := api.svc.Get(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id)
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) updateStudent(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data student.StudentInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentInput")
	}
	if err = data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	st, err := api.svc.Update(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) destroyStudent(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Admission applications

func (api *studentApi) queryApplications(ctx echo.Context) error {
	filter, ordering := bindQuery(ctx, "status", "admission_class")
	apps, err := api.svc.ListApplications(ctx.Request().Context(), contextSnapshot(ctx).Scope(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []student.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *studentApi) apply(ctx echo.Context) error {
	var data student.ApplicationInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApplicationInput")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	app, err := api.svc.CreateApplication(ctx.Request().Context(), contextSnapshot(ctx).Scope(), data)
	if err != nil {
		return errors.Wrap(err, "creating application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *studentApi) retrieveApplication(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	app, err := api.svc.GetApplication(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id)
	if err != nil {
		return errors.Wrap(err, "finding application by ID")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *studentApi) review(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data student.Review
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Review")
	}
	if err = data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	app, err := api.svc.ReviewApplication(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id, data)
	if err != nil {
		return errors.Wrap(err, "reviewing application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *studentApi) destroyApplication(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteApplication(ctx.Request().Context(), contextSnapshot(ctx).Scope(), id); err != nil {
		return errors.Wrap(err, "deleting application")
	}
	return ctx.NoContent(http.StatusNoContent)
}
