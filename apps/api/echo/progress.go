package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/cache"
	"github.com/trezcool/masomo-learn/core/progress"
)

type (
	progressApi struct {
		tracker  *progress.Tracker
		cache    *cache.Cache
		validate *validator.Validate
	}

	CreateProgressRequest struct {
		CourseID string `json:"course_id"`
		ItemID   string `json:"item_id"`
	}

	// UpdateProgressRequest carries the version the client read along with the fields to change.
	UpdateProgressRequest struct {
		Version int `json:"version"`
		progress.Patch
	}

	CompareAndSwapRequest struct {
		Field    progress.Field `json:"field"`
		Expected interface{}    `json:"expected"`
		Value    interface{}    `json:"value"`
	}

	CertificateRequest struct {
		TotalItems int `json:"total_items"`
	}
)

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := progressApi{
		tracker:  deps.Tracker,
		cache:    deps.Cache,
		validate: deps.Validate,
	}

	pg := g.Group("/progress", jwt)
	pg.POST("", api.create)
	pg.POST("/attempts", api.submitAttempt, rateLimitMiddleware(deps.Limiter))
	pg.GET("/:id", api.retrieve)
	pg.PATCH("/:id", api.update)
	pg.POST("/:id/cas", api.compareAndSwap)

	cg := g.Group("/courses/:courseID", jwt)
	cg.GET("/progress", api.courseSummary)
	cg.POST("/certificate", api.issueCertificate)

	g.GET("/stats/cache", api.cacheStats, jwt)
}

// Handlers

func (api *progressApi) create(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	var data CreateProgressRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateProgressRequest")
	}

	prog, err := api.tracker.Create(ctx.Request().Context(), progress.NewProgress{
		Identity: progress.Identity{UserID: userID, CourseID: data.CourseID, ItemID: data.ItemID},
	})
	if err != nil {
		return errors.Wrap(err, "creating progress")
	}
	return ctx.JSON(http.StatusCreated, prog)
}

func (api *progressApi) retrieve(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	prog, err := api.tracker.Get(ctx.Request().Context(), userID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *progressApi) update(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	var data UpdateProgressRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProgressRequest")
	}
	if data.Version < 1 {
		return core.NewValidationError(nil, core.FieldError{Field: "version", Error: "this field is required"})
	}
	if data.Patch.IsEmpty() {
		return core.NewValidationError(nil, core.FieldError{Field: "patch", Error: "nothing to update"})
	}

	prog, err := api.tracker.Update(ctx.Request().Context(), userID, ctx.Param("id"), data.Version, data.Patch)
	if err != nil {
		return errors.Wrap(err, "updating progress")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *progressApi) compareAndSwap(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	var data CompareAndSwapRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompareAndSwapRequest")
	}
	expected, err := progress.ParseValue(data.Field, data.Expected)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "expected", Error: err.Error()})
	}
	value, err := progress.ParseValue(data.Field, data.Value)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "value", Error: err.Error()})
	}

	prog, err := api.tracker.CompareAndSwap(ctx.Request().Context(), userID, ctx.Param("id"), data.Field, expected, value)
	if err != nil {
		return errors.Wrap(err, "swapping progress field")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *progressApi) submitAttempt(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	var data progress.Attempt
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Attempt")
	}

	prog, err := api.tracker.SubmitAttempt(ctx.Request().Context(), userID, data)
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *progressApi) courseID(ctx echo.Context) (string, error) {
	courseID := core.CleanString(ctx.Param("courseID"))
	if err := api.validate.Var(courseID, "required,ident,max=128"); err != nil {
		return "", core.NewValidationError(err, core.FieldError{Field: "course_id", Error: "invalid course id"})
	}
	return courseID, nil
}

func (api *progressApi) courseSummary(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	courseID, err := api.courseID(ctx)
	if err != nil {
		return err
	}

	var totalItems int
	if val := ctx.QueryParam("total_items"); val != "" {
		if totalItems, err = strconv.Atoi(val); err != nil || totalItems < 0 {
			return core.NewValidationError(err, core.FieldError{Field: "total_items", Error: "must be a positive integer"})
		}
	}

	sum, err := api.tracker.CourseSummary(ctx.Request().Context(), userID, courseID, totalItems)
	if err != nil {
		return errors.Wrap(err, "summarizing course progress")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *progressApi) issueCertificate(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	courseID, err := api.courseID(ctx)
	if err != nil {
		return err
	}
	var data CertificateRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CertificateRequest")
	}

	cert, token, err := api.tracker.IssueCertificate(ctx.Request().Context(), userID, courseID, data.TotalItems)
	if err != nil {
		return errors.Wrap(err, "issuing certificate")
	}
	return ctx.JSON(http.StatusCreated, CertificateResponse{Certificate: cert, Token: token})
}

func (api *progressApi) cacheStats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.cache.Stats())
}
