package routes

import (
	"testing"

	"github.com/go-notify-sync/internal/domain"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		n        domain.Notification
		wantPath string
		wantOK   bool
	}{
		{
			name:     "tasks without metadata goes to task list",
			n:        domain.Notification{Module: domain.ModuleTasks},
			wantPath: "/app/tasks",
			wantOK:   true,
		},
		{
			name: "tasks with project goes to project detail",
			n: domain.Notification{
				Module:   domain.ModuleTasks,
				Metadata: map[string]string{"project_id": "project456"},
			},
			wantPath: "/app/projects/project456",
			wantOK:   true,
		},
		{
			name: "change order with full metadata",
			n: domain.Notification{
				Module:     domain.ModuleCost,
				EntityType: strPtr("change_order"),
				Metadata: map[string]string{
					"project_id":  "project456",
					"contract_id": "contract789",
					"co_id":       "co123",
				},
			},
			wantPath: "/app/projects/project456/contracts/contract789/change-orders/co123",
			wantOK:   true,
		},
		{
			name: "change order without metadata is not navigable",
			n: domain.Notification{
				Module:     domain.ModuleCost,
				EntityType: strPtr("change_order"),
			},
			wantOK: false,
		},
		{
			name: "change order missing one field is not navigable",
			n: domain.Notification{
				Module:     domain.ModuleCost,
				EntityType: strPtr("change_order"),
				Metadata: map[string]string{
					"project_id":  "project456",
					"contract_id": "contract789",
				},
			},
			wantOK: false,
		},
		{
			name: "payment certificate goes to contract detail",
			n: domain.Notification{
				Module:     domain.ModuleCost,
				EntityType: strPtr("payment_certificate"),
				Metadata: map[string]string{
					"project_id":  "p1",
					"contract_id": "c1",
				},
			},
			wantPath: "/app/projects/p1/contracts/c1",
			wantOK:   true,
		},
		{
			name: "payment without contract is not navigable",
			n: domain.Notification{
				Module:     domain.ModuleCost,
				EntityType: strPtr("payment"),
				Metadata:   map[string]string{"project_id": "p1"},
			},
			wantOK: false,
		},
		{
			name: "generic cost event with project",
			n: domain.Notification{
				Module:   domain.ModuleCost,
				Metadata: map[string]string{"project_id": "p1"},
			},
			wantPath: "/app/projects/p1",
			wantOK:   true,
		},
		{
			name:   "generic cost event without project is not navigable",
			n:      domain.Notification{Module: domain.ModuleCost},
			wantOK: false,
		},
		{
			name: "document with entity id goes to document detail",
			n: domain.Notification{
				Module:     domain.ModuleDocuments,
				EntityType: strPtr("document"),
				EntityID:   strPtr("doc1"),
			},
			wantPath: "/app/documents/doc1",
			wantOK:   true,
		},
		{
			name:     "documents without entity goes to document list",
			n:        domain.Notification{Module: domain.ModuleDocuments},
			wantPath: "/app/documents",
			wantOK:   true,
		},
		{
			name:     "rbac always goes to user management",
			n:        domain.Notification{Module: domain.ModuleRBAC},
			wantPath: "/app/admin/users",
			wantOK:   true,
		},
		{
			name:   "system is never navigable",
			n:      domain.Notification{Module: domain.ModuleSystem},
			wantOK: false,
		},
		{
			name:   "empty module is never navigable",
			n:      domain.Notification{},
			wantOK: false,
		},
		{
			name:   "unknown module is never navigable",
			n:      domain.Notification{Module: domain.Module("billing")},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, ok := Resolve(tt.n)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantPath, route.Path)
			}
		})
	}
}
