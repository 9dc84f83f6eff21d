package cmd

import (
	"context"

	appproject "tasktrack/application/project"
	apptask "tasktrack/application/task"
	"tasktrack/pkg/logger"

	"go.uber.org/zap"
)

const demoTenant = "demo"

// SeedDemo creates a demo project with a few tasks in different states.
func SeedDemo(ctx context.Context, projects *appproject.ApplicationService, tasks *apptask.ApplicationService) error {
	p, err := projects.CreateProject(ctx, appproject.CreateProjectRequest{TenantID: demoTenant, Name: "Website relaunch"})
	if err != nil {
		return err
	}

	titles := []string{"Draft sitemap", "Pick a colour scheme", "Migrate blog posts"}
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		t, err := tasks.CreateTask(ctx, apptask.CreateTaskRequest{TenantID: demoTenant, ProjectID: p.ID, Title: title})
		if err != nil {
			return err
		}
		ids = append(ids, t.ID)
	}

	if _, err := tasks.AssignTask(ctx, demoTenant, ids[0], "alice"); err != nil {
		return err
	}
	if _, err := tasks.StartTask(ctx, demoTenant, ids[0]); err != nil {
		return err
	}
	if _, err := tasks.AddChecklistItem(ctx, demoTenant, ids[1], "Check contrast"); err != nil {
		return err
	}
	if _, err := tasks.CompleteTask(ctx, demoTenant, ids[2]); err != nil {
		return err
	}

	logger.Info("Demo data seeded", zap.String("tenant_id", demoTenant), zap.String("project_id", p.ID))
	return nil
}
