package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metasched/metasched/pkg/types"
)

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthStatus{
		Status: "healthy",
		Checks: map[string]string{
			"orchestrator": string(s.orch.Status()),
		},
		Timestamp: time.Now(),
	})
}

func (s *Server) loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	user, err := s.rbac.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_failed", "message": "invalid username or password"})
		return
	}

	permissions, err := s.rbac.GetUserPermissions(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "permission_lookup_failed"})
		return
	}
	role := ""
	if len(user.Roles) > 0 {
		role = user.Roles[0]
	}

	tokens, err := s.jwtSvc.GenerateToken(user.ID, user.Username, role, permissions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_generation_failed"})
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (s *Server) refreshTokenHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	tokens, err := s.jwtSvc.RefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_refresh_token", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (s *Server) loadInstanceHandler(c *gin.Context) {
	var instance types.ProblemInstance
	if err := c.ShouldBindJSON(&instance); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	if err := s.orch.LoadInstance(&instance); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "instance_rejected", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": s.orch.Status()})
}

func (s *Server) generateInstanceHandler(c *gin.Context) {
	var req struct {
		TaskCount    int                    `json:"taskCount" binding:"required"`
		MachineCount int                    `json:"machineCount" binding:"required"`
		Seed         int64                  `json:"seed"`
		Generation   types.GenerationConfig `json:"generation"`
	}
	req.Generation = types.DefaultGenerationConfig()
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	if err := s.orch.GenerateAndLoad(req.TaskCount, req.MachineCount, req.Seed, req.Generation); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "generation_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": s.orch.Status()})
}

func (s *Server) startRunHandler(c *gin.Context) {
	var req struct {
		Algorithm types.AlgorithmKind `json:"algorithm" binding:"required"`
		PSO       types.PSOConfig     `json:"pso"`
		GA        types.GAConfig      `json:"ga"`
	}
	req.PSO = s.config.PSO
	req.GA = s.config.GA
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	if err := s.orch.Start(req.Algorithm, req.PSO, req.GA); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "start_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runId": s.orch.RunID(), "status": s.orch.Status()})
}

func (s *Server) stepRunHandler(c *gin.Context) {
	if err := s.orch.Step(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "step_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": s.orch.Status(), "solution": s.orch.BestSolution()})
}

func (s *Server) stopRunHandler(c *gin.Context) {
	if err := s.orch.Stop(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "stop_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": s.orch.Status()})
}

func (s *Server) resetRunHandler(c *gin.Context) {
	if err := s.orch.Reset(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "reset_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": s.orch.Status()})
}

func (s *Server) runStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runId": s.orch.RunID(), "status": s.orch.Status()})
}

func (s *Server) runSolutionHandler(c *gin.Context) {
	best := s.orch.BestSolution()
	if best == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no_solution", "message": "no run has produced a solution yet"})
		return
	}
	c.JSON(http.StatusOK, best)
}
