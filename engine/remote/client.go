// Package remote is the group-management capability used by the wizard
// and the batch executor, plus its HTTP gateway adapter.
package remote

import (
	"context"
	"strings"

	"github.com/compozy/groupops/engine/group"
)

// Client exposes the group and participant primitives of the remote service.
// session identifies the operator's connected account.
type Client interface {
	ListGroups(ctx context.Context, session string) ([]group.Group, error)
	IsMember(ctx context.Context, session, groupID, target string) (bool, error)
	AddMember(ctx context.Context, session, groupID, target string) error
	Promote(ctx context.Context, session, groupID, target string) error
	Demote(ctx context.Context, session, groupID, target string) error
	ListAdmins(ctx context.Context, session, groupID string) ([]group.Admin, error)
}

// DisplayNumber renders a participant key as a clean phone number for logs.
func DisplayNumber(key string) string {
	if key == "" {
		return "Unknown"
	}
	id := strings.SplitN(key, "@", 2)[0]
	id = strings.SplitN(id, ":", 2)[0]
	switch {
	case strings.Contains(key, "@s.whatsapp.net"):
		if strings.HasPrefix(id, "0") && len(id) > 10 {
			return "62" + id[1:]
		}
		return id
	case strings.Contains(key, "@lid"):
		if len(id) > 12 {
			return id[:12]
		}
		return id
	}
	return id
}
