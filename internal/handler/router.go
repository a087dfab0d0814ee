package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/carebridge/carebridge-api/internal/middleware"
	"github.com/carebridge/carebridge-api/internal/models"
	"github.com/carebridge/carebridge-api/internal/repository"
	"github.com/carebridge/carebridge-api/internal/service"
)

// Routes bundles every handler wired into the HTTP surface.
type Routes struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Clients   *ClientHandler
	Goals     *GoalHandler
	Activity  *ActivityHandler
	Shifts    *ShiftHandler
	Schedules *ScheduleHandler
	Behavior  *BehaviorHandler
	Media     *MediaHandler
	Reports   *ReportHandler
	Analytics *AnalyticsHandler
	Metrics   *MetricsHandler

	AuthService    *service.AuthService
	MetricsService *service.MetricsService
	UserRepo       *repository.UserRepository
}

var (
	adminRoles = []string{string(models.RoleAdmin), string(models.RoleSuperAdmin)}
	carerRoles = []string{string(models.RoleSupportWorker), string(models.RolePractitioner)}
	staffRoles = append(append([]string{}, adminRoles...), carerRoles...)
)

// Register attaches every route group to the engine. Authorization is
// two-layered: RBAC gates by role here, the services enforce ownership
// and approval.
func (r Routes) Register(engine *gin.Engine) {
	engine.Use(middleware.Metrics(r.MetricsService))
	engine.Use(middleware.WithResponseMeta())

	engine.GET("/metrics", r.Metrics.Prometheus)
	engine.GET("/health", r.Metrics.Health)

	api := engine.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/login", r.Auth.Login)
	auth.POST("/refresh", r.Auth.Refresh)
	auth.POST("/forgot-password", r.Auth.ForgotPassword)
	auth.POST("/reset-password", r.Auth.ResetPassword)

	// Downloads are authorized by the signed token in the query string, so
	// a JWT is accepted for request attribution but not required.
	api.GET("/media/download", middleware.OptionalJWT(r.AuthService), r.Media.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(r.AuthService))

	secured.GET("/auth/me", r.Auth.Me)
	secured.POST("/auth/logout",
		middleware.Audit(r.UserRepo, models.AuditActionLogout, "auth"), r.Auth.Logout)
	secured.POST("/auth/change-password",
		middleware.Audit(r.UserRepo, models.AuditActionPasswordChange, "auth"), r.Auth.ChangePassword)

	users := secured.Group("/users")
	users.GET("", middleware.RBAC(adminRoles...), r.Users.List)
	users.POST("", middleware.RBAC(adminRoles...), r.Users.Create)
	users.GET("/:id", middleware.RBAC(append(adminRoles, "SELF")...), r.Users.Get)
	users.PUT("/:id", middleware.RBAC(adminRoles...), r.Users.Update)
	users.POST("/:id/approve", middleware.RBAC(adminRoles...), r.Users.Approve)

	clients := secured.Group("/clients")
	clients.GET("", middleware.RBAC(staffRoles...), r.Clients.List)
	clients.POST("", middleware.RBAC(adminRoles...), r.Clients.Create)
	clients.GET("/:id", middleware.RBAC(staffRoles...), r.Clients.Get)
	clients.PUT("/:id", middleware.RBAC(adminRoles...), r.Clients.Update)
	clients.DELETE("/:id", middleware.RBAC(adminRoles...), r.Clients.Deactivate)

	goals := secured.Group("/goals")
	goals.GET("", middleware.RBAC(staffRoles...), r.Goals.List)
	goals.POST("", middleware.RBAC(adminRoles...), r.Goals.Create)
	goals.GET("/:id", middleware.RBAC(staffRoles...), r.Goals.Get)
	goals.PUT("/:id", middleware.RBAC(adminRoles...), r.Goals.Update)
	goals.PATCH("/:id/status", middleware.RBAC(adminRoles...), r.Goals.UpdateStatus)
	goals.GET("/:id/progress", middleware.RBAC(staffRoles...), r.Goals.Progress)

	activities := secured.Group("/activities")
	activities.GET("", middleware.RBAC(staffRoles...), r.Activity.List)
	activities.POST("", middleware.RBAC(adminRoles...), r.Activity.Create)
	activities.GET("/:id", middleware.RBAC(staffRoles...), r.Activity.Get)
	activities.PUT("/:id", middleware.RBAC(adminRoles...), r.Activity.Update)
	activities.DELETE("/:id", middleware.RBAC(adminRoles...), r.Activity.Deactivate)
	activities.GET("/:id/stats", middleware.RBAC(staffRoles...), r.Activity.Stats)
	activities.GET("/:id/risk", middleware.RBAC(staffRoles...), r.Behavior.Risk)
	activities.GET("/:id/risk-summary", middleware.RBAC(adminRoles...), r.Behavior.RiskSummary)

	logs := secured.Group("/activity-logs")
	logs.GET("", middleware.RBAC(staffRoles...), r.Activity.ListLogs)
	logs.POST("", middleware.RBAC(carerRoles...), r.Activity.RecordCompletion)
	logs.GET("/:id", middleware.RBAC(staffRoles...), r.Activity.GetLog)
	logs.PUT("/:id", middleware.RBAC(staffRoles...), r.Activity.UpdateLog)

	shifts := secured.Group("/shifts")
	shifts.GET("", middleware.RBAC(staffRoles...), r.Shifts.List)
	shifts.POST("", middleware.RBAC(staffRoles...), r.Shifts.Create)
	shifts.GET("/summary", middleware.RBAC(staffRoles...), r.Shifts.Summary)
	shifts.GET("/:id", middleware.RBAC(staffRoles...), r.Shifts.Get)
	shifts.PUT("/:id", middleware.RBAC(adminRoles...), r.Shifts.UpdateSchedule)
	shifts.DELETE("/:id", middleware.RBAC(adminRoles...), r.Shifts.Cancel)
	shifts.POST("/:id/clock-in", middleware.RBAC(carerRoles...), r.Shifts.ClockIn)
	shifts.POST("/:id/clock-out", middleware.RBAC(carerRoles...), r.Shifts.ClockOut)
	shifts.POST("/:id/review", middleware.RBAC(adminRoles...), r.Shifts.Review)

	schedules := secured.Group("/schedules")
	schedules.GET("", middleware.RBAC(staffRoles...), r.Schedules.List)
	schedules.POST("", middleware.RBAC(staffRoles...), r.Schedules.Create)
	schedules.GET("/conflicts", middleware.RBAC(adminRoles...), r.Schedules.Conflicts)
	schedules.POST("/conflicts/:id/resolve", middleware.RBAC(adminRoles...), r.Schedules.ResolveConflict)
	schedules.GET("/:id", middleware.RBAC(staffRoles...), r.Schedules.Get)
	schedules.PUT("/:id", middleware.RBAC(adminRoles...), r.Schedules.Update)
	schedules.DELETE("/:id", middleware.RBAC(adminRoles...), r.Schedules.Cancel)
	schedules.POST("/:id/start", middleware.RBAC(carerRoles...), r.Schedules.Start)
	schedules.POST("/:id/complete", middleware.RBAC(carerRoles...), r.Schedules.Complete)
	schedules.POST("/:id/reschedule", middleware.RBAC(adminRoles...), r.Schedules.Reschedule)

	incidents := secured.Group("/incidents")
	incidents.GET("", middleware.RBAC(staffRoles...), r.Behavior.List)
	incidents.POST("", middleware.RBAC(carerRoles...), r.Behavior.Report)
	incidents.GET("/:id", middleware.RBAC(staffRoles...), r.Behavior.Get)
	incidents.PUT("/:id", middleware.RBAC(staffRoles...), r.Behavior.Update)
	incidents.POST("/:id/review", middleware.RBAC(adminRoles...), r.Behavior.Review)

	media := secured.Group("/media")
	media.GET("", middleware.RBAC(staffRoles...), r.Media.List)
	media.POST("", middleware.RBAC(staffRoles...), r.Media.Upload)
	media.GET("/:id", middleware.RBAC(staffRoles...), r.Media.Get)

	reports := secured.Group("/reports")
	reports.GET("/timesheet", middleware.RBAC(staffRoles...), r.Reports.Timesheet)
	reports.GET("/incidents", middleware.RBAC(adminRoles...), r.Reports.Incidents)

	secured.GET("/analytics/dashboard", middleware.RBAC(adminRoles...), r.Analytics.Dashboard)
}
