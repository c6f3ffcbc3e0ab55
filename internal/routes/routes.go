package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"emotioncam/internal/config"
	"emotioncam/internal/handler"
	"emotioncam/internal/logger"
	"emotioncam/internal/middleware"
	"emotioncam/internal/repository"
)

// Deps are the services the HTTP surface talks to.
type Deps struct {
	Cameras      handler.CameraService
	Stats        handler.CameraStatsProvider
	Viewers      handler.ViewerHub
	Snapshots    handler.SnapshotDirectory
	SnapshotRepo repository.SnapshotRepository
	FaceRepo     repository.FaceRepository
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean(path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(deps Deps, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Camera ingest
	mux.HandleFunc("/camera/frame", handler.CameraFrameHandler(deps.Cameras, cfg, logger))
	mux.HandleFunc("/camera/ws", handler.CameraWebsocketHandler(deps.Cameras, cfg, logger))

	// API endpoints
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(deps.Viewers, logger))
	mux.HandleFunc("/api/snapshots", handler.GetSnapshotsHandler(deps.Snapshots, logger, deps.SnapshotRepo, deps.FaceRepo))
	mux.HandleFunc("/api/snapshots/view", handler.ViewSnapshotHandler(deps.Snapshots))
	mux.HandleFunc("/api/snapshots/clear", handler.ClearSnapshotsHandler(deps.Snapshots, logger, deps.SnapshotRepo))
	mux.HandleFunc("/api/snapshots/delete", handler.DeleteSnapshotHandler(deps.Snapshots, logger, deps.SnapshotRepo))
	mux.HandleFunc("/api/snapshots/filters", handler.GetFiltersHandler(logger, deps.SnapshotRepo, deps.FaceRepo))
	mux.HandleFunc("/api/snapshots/stats", handler.GetStatsHandler(logger, deps.SnapshotRepo, deps.Stats))

	// Log endpoints
	for _, level := range []string{"info", "warning", "error"} {
		file := level + ".log"
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(cfg, file))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.AuthMiddleware(mux)
}
