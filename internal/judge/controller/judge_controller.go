// Package controller exposes the judge service over HTTP.
package controller

import (
	"github.com/gin-gonic/gin"

	"verdict/internal/judge/sandbox/spec"
	"verdict/internal/judge/service"
	"verdict/pkg/utils/response"
)

// JudgeController handles judge and execute requests.
type JudgeController struct {
	svc *service.JudgeService
}

// NewJudgeController creates the controller.
func NewJudgeController(svc *service.JudgeService) *JudgeController {
	return &JudgeController{svc: svc}
}

// RegisterRoutes mounts the API under the given router group.
func (ctl *JudgeController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/judge", ctl.Judge)
	group.POST("/execute", ctl.Execute)
	group.GET("/results/:id", ctl.GetResult)
	group.GET("/problems/:id", ctl.GetProblem)
	group.GET("/languages", ctl.Languages)
}

// JudgeRequest is the POST /judge body.
type JudgeRequest struct {
	ProblemID string `json:"problemId" binding:"required"`
	Code      string `json:"code" binding:"required"`
	Language  string `json:"language" binding:"required"`
}

// Judge runs a submission against a problem.
func (ctl *JudgeController) Judge(c *gin.Context) {
	var req JudgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "problemId, code and language are required")
		return
	}

	res, err := ctl.svc.Judge(c.Request.Context(), req.ProblemID, req.Code, req.Language)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ExecuteRequest is the POST /execute body: a raw sandbox invocation with
// no problem semantics attached.
type ExecuteRequest struct {
	Language string             `json:"language"`
	Files    []spec.FileSpec    `json:"files" binding:"required"`
	Compile  *spec.CommandSpec  `json:"compile"`
	Run      spec.RunCommand    `json:"run" binding:"required"`
	Limits   spec.ResourceLimit `json:"limits"`
	Env      []string           `json:"env"`
}

// Execute runs an arbitrary compile+run pipeline in the sandbox.
func (ctl *JudgeController) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "files and run are required")
		return
	}
	if req.Run.Command == "" {
		response.BadRequest(c, "run.command is required")
		return
	}

	res := ctl.svc.Execute(c.Request.Context(), spec.ExecuteRequest{
		Language: req.Language,
		Files:    req.Files,
		Compile:  req.Compile,
		Run:      req.Run,
		Limits:   req.Limits,
		Env:      req.Env,
	})
	response.Success(c, res)
}

// GetResult returns a stored judge result.
func (ctl *JudgeController) GetResult(c *gin.Context) {
	res, err := ctl.svc.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetProblem returns the caller-facing view of a problem.
func (ctl *JudgeController) GetProblem(c *gin.Context) {
	view, err := ctl.svc.GetProblem(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// Languages lists the configured language profiles.
func (ctl *JudgeController) Languages(c *gin.Context) {
	response.Success(c, gin.H{"languages": ctl.svc.Languages()})
}
