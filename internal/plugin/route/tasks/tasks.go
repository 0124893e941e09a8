// Package tasks serves the admin task CRUD endpoints.
package tasks

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/onlymatt/gateway/internal/httpapi"
	"github.com/onlymatt/gateway/internal/model"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
)

// MountRoutes mounts the /admin/tasks endpoints behind the admin key
// guard.
func MountRoutes(r *gin.Engine, store registrystore.GatewayStore, auth gin.HandlerFunc) {
	g := r.Group("/admin/tasks", auth)
	g.POST("", func(c *gin.Context) { createTask(c, store) })
	g.GET("", func(c *gin.Context) { listTasks(c, store) })
	g.PUT("/:id", func(c *gin.Context) { updateTask(c, store) })
	g.DELETE("/:id", func(c *gin.Context) { deleteTask(c, store) })
}

func createTask(c *gin.Context, store registrystore.GatewayStore) {
	var req registrystore.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "invalid request body: "+err.Error())
		return
	}

	task, err := store.CreateTask(c.Request.Context(), req)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	httpapi.Created(c, gin.H{"task": task})
}

func listTasks(c *gin.Context, store registrystore.GatewayStore) {
	tasks, err := store.ListTasks(c.Request.Context())
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	httpapi.OK(c, gin.H{"tasks": tasks})
}

func updateTask(c *gin.Context, store registrystore.GatewayStore) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "invalid task id")
		return
	}
	var req struct {
		Status model.TaskStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "invalid request body: "+err.Error())
		return
	}

	task, err := store.SetTaskStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	httpapi.OK(c, gin.H{"task": task})
}

func deleteTask(c *gin.Context, store registrystore.GatewayStore) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "invalid task id")
		return
	}
	if err := store.DeleteTask(c.Request.Context(), id); err != nil {
		httpapi.Error(c, err)
		return
	}
	httpapi.OK(c, gin.H{})
}
