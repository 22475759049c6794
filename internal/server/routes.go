package server

func (s *Server) registerRoutes() {
	r := s.router

	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(s.recovery)
	r.Use(s.cors)

	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.methodNotAllowed)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Method("GET", "/metrics", s.metrics.Handler())

	r.With(s.requireAPIKey).Post("/fetch_channel_data", s.handleFetchChannelData)

	r.Get("/instagram", s.handleInstagramPage)
	r.With(s.requireAPIKey).Post("/download", s.handleDownload)
	r.Get("/progress/{id}", s.handleProgress)
	r.Get("/files/{name}", s.handleFile)

	r.Post("/generate_api_key", s.handleGenerateAPIKey)
	r.Delete("/api_keys", s.handleRevokeAPIKey)
}
