package server

import (
	"net/http"
	"time"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cluster"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/importer"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/logger"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"

	"github.com/labstack/echo/v4"
)

// errorHandler is the echo error handler: kit errors carry their own HTTP
// status mapping, everything else becomes a 500.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	if he, ok := err.(*echo.HTTPError); ok {
		if jsonErr := c.JSON(he.Code, he.Message); jsonErr != nil {
			logger.WithError(jsonErr).Error("Failed to write error response")
		}
		return
	}

	httpErr := errors.ToHTTPError(err).(*echo.HTTPError)
	if jsonErr := c.JSON(httpErr.Code, httpErr.Message); jsonErr != nil {
		logger.WithError(jsonErr).Error("Failed to write error response")
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")

	instances := api.Group("/instances")
	instances.GET("", s.handleListInstances)
	instances.POST("", s.handleCreateInstance)
	instances.GET("/:name", s.handleGetInstance)
	instances.DELETE("/:name", s.handleDeleteInstance)
	instances.PUT("/:name/settings", s.handleUpdateSettings)
	instances.PUT("/:name/token", s.handleSetToken)
	instances.PUT("/:name/ports", s.handleSetPorts)
	instances.POST("/:name/start", s.handleStartInstance)
	instances.POST("/:name/stop", s.handleStopInstance)
	instances.GET("/:name/status", s.handleInstanceStatus)
	instances.POST("/:name/import", s.handleImport)

	instances.GET("/:name/mods", s.handleListMods)
	instances.POST("/:name/mods", s.handleAddMod)
	instances.DELETE("/:name/mods/:id", s.handleRemoveMod)
	instances.PUT("/:name/mods/:id/state", s.handleSetModState)
	instances.PUT("/:name/mods/:id/options", s.handleConfigureMod)
	instances.PUT("/:name/mods/order", s.handleReorderMods)

	api.GET("/presets", s.handleListPresets)

	s.echo.GET("/ws", s.handleStatusWebSocket)
}

func (s *Server) handleHealth(c echo.Context) error {
	health := map[string]string{
		"status":  "healthy",
		"version": "1.0.0",
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	}
	if s.database != nil {
		if err := s.database.HealthCheck(c.Request().Context()); err != nil {
			health["status"] = "degraded"
			health["database"] = err.Error()
		} else {
			health["database"] = "healthy"
		}
	}
	return c.JSON(http.StatusOK, health)
}

// instanceResponse builds the API view of an instance
func (s *Server) instanceResponse(inst *cluster.Instance) InstanceResponse {
	resp := InstanceResponse{
		Instance: inst,
		HasToken: inst.Token != "",
	}
	if inst.Status == cluster.StatusRunning {
		resp.Uptime = s.sup.Uptime(inst.Name).Round(time.Second).String()
	}
	return resp
}

func (s *Server) handleListInstances(c echo.Context) error {
	list, err := s.reg.List(c.Request().Context())
	if err != nil {
		return err
	}

	resp := InstancesResponse{Instances: make([]InstanceResponse, 0, len(list)), Total: len(list)}
	for _, inst := range list {
		resp.Instances = append(resp.Instances, s.instanceResponse(inst))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateInstance(c echo.Context) error {
	var req CreateInstanceRequest
	if err := c.Bind(&req); err != nil {
		return errors.BadRequest("Invalid request body", err.Error())
	}

	inst, err := s.reg.Create(c.Request().Context(), req.Name, req.Token, registry.CreateOptions{
		Settings: req.Settings,
		Ports:    req.Ports,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s.instanceResponse(inst))
}

func (s *Server) handleGetInstance(c echo.Context) error {
	inst, err := s.reg.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.instanceResponse(inst))
}

func (s *Server) handleDeleteInstance(c echo.Context) error {
	confirm := c.QueryParam("confirm") == "true"
	if err := s.reg.Delete(c.Request().Context(), c.Param("name"), confirm); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "Instance deleted"})
}

func (s *Server) handleUpdateSettings(c echo.Context) error {
	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return errors.BadRequest("Invalid request body", err.Error())
	}

	inst, err := s.reg.UpdateSettings(c.Request().Context(), c.Param("name"), req.Settings)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.instanceResponse(inst))
}

func (s *Server) handleSetToken(c echo.Context) error {
	var req SetTokenRequest
	if err := c.Bind(&req); err != nil {
		return errors.BadRequest("Invalid request body", err.Error())
	}

	inst, err := s.reg.SetToken(c.Request().Context(), c.Param("name"), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.instanceResponse(inst))
}

func (s *Server) handleSetPorts(c echo.Context) error {
	var req SetPortsRequest
	if err := c.Bind(&req); err != nil {
		return errors.BadRequest("Invalid request body", err.Error())
	}

	inst, err := s.reg.SetPorts(c.Request().Context(), c.Param("name"), req.Ports)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.instanceResponse(inst))
}

func (s *Server) handleStartInstance(c echo.Context) error {
	name := c.Param("name")
	if err := s.sup.Start(c.Request().Context(), name); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, StatusResponse{
		Name:   name,
		Status: string(s.sup.Poll(name)),
	})
}

func (s *Server) handleStopInstance(c echo.Context) error {
	name := c.Param("name")
	if err := s.sup.Stop(c.Request().Context(), name); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, StatusResponse{
		Name:   name,
		Status: string(s.sup.Poll(name)),
	})
}

func (s *Server) handleInstanceStatus(c echo.Context) error {
	inst, err := s.reg.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}

	resp := StatusResponse{Name: inst.Name, Status: string(inst.Status)}
	if inst.Status == cluster.StatusRunning {
		resp.Uptime = s.sup.Uptime(inst.Name).Round(time.Second).String()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleImport(c echo.Context) error {
	var req ImportRequest
	if err := c.Bind(&req); err != nil {
		return errors.BadRequest("Invalid request body", err.Error())
	}

	manifest := importer.Manifest{
		Source:      req.Source,
		Destination: c.Param("name"),
		Selection:   req.Selection,
	}
	if err := s.engine.Import(c.Request().Context(), manifest, nil); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "Import completed"})
}

func (s *Server) handleListMods(c echo.Context) error {
	infos, err := s.mods.List(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ModsResponse{Mods: infos, Total: len(infos)})
}

func (s *Server) handleAddMod(c echo.Context) error {
	var req AddModRequest
	if err := c.Bind(&req); err != nil {
		return errors.BadRequest("Invalid request body", err.Error())
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	inst, err := s.mods.Add(c.Request().Context(), c.Param("name"), req.ID, enabled, req.Options)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s.instanceResponse(inst))
}

func (s *Server) handleRemoveMod(c echo.Context) error {
	inst, err := s.mods.Remove(c.Request().Context(), c.Param("name"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.instanceResponse(inst))
}

func (s *Server) handleSetModState(c echo.Context) error {
	var req ModStateRequest
	if err := c.Bind(&req); err != nil {
		return errors.BadRequest("Invalid request body", err.Error())
	}

	inst, err := s.mods.SetEnabled(c.Request().Context(), c.Param("name"), c.Param("id"), req.Enabled)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.instanceResponse(inst))
}

func (s *Server) handleConfigureMod(c echo.Context) error {
	var req ConfigureModRequest
	if err := c.Bind(&req); err != nil {
		return errors.BadRequest("Invalid request body", err.Error())
	}

	inst, err := s.mods.Configure(c.Request().Context(), c.Param("name"), c.Param("id"), req.Options)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.instanceResponse(inst))
}

func (s *Server) handleReorderMods(c echo.Context) error {
	var req ReorderModsRequest
	if err := c.Bind(&req); err != nil {
		return errors.BadRequest("Invalid request body", err.Error())
	}

	inst, err := s.mods.Reorder(c.Request().Context(), c.Param("name"), req.Order)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.instanceResponse(inst))
}

func (s *Server) handleListPresets(c echo.Context) error {
	return c.JSON(http.StatusOK, PresetsResponse{Presets: s.reg.Presets()})
}
