package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api")

	limited := s.middleware.RateLimit.PerIP()
	requireJWT := s.middleware.JWT.RequireJWT()

	users := api.Group("/users")
	users.POST("/register", s.register, limited)
	users.GET("/verify-email/:uid/:token", s.verifyEmail)
	users.POST("/resend-verification-email", s.resendVerificationEmail, limited)
	users.POST("/login", s.login, limited)
	users.POST("/token/refresh", s.refreshToken, limited)
	users.POST("/password-reset", s.requestPasswordReset, limited)
	users.POST("/password-reset/confirm", s.confirmPasswordReset, limited)
	users.GET("/universities", s.listUniversities)

	users.POST("/logout", s.logout, requireJWT)

	me := users.Group("/me", requireJWT)
	me.GET("", s.getOwnProfile)
	me.PUT("", s.updateOwnProfile)
	me.PATCH("", s.updateOwnProfile)
	me.PATCH("/password", s.changePassword)
	me.PATCH("/email", s.changeEmail)
	me.PATCH("/phone", s.changePhone)
	me.GET("/activity", s.getOwnActivity)

	resources := api.Group("/resources/:kind", s.middleware.JWT.OptionalJWT())
	resources.GET("", s.listResources)
	resources.GET("/:id", s.getResource)
	resources.POST("", s.createResource)
	resources.PATCH("/:id", s.updateResource)
	resources.PUT("/:id", s.updateResource)
	resources.DELETE("/:id", s.deleteResource)
}
