package bot

import "context"

// Router fans inbound messages to the group or direct pipeline. The
// transport calls Handle once per update, on its own goroutine.
type Router struct {
	groups *GroupOrchestrator
	direct *DirectMessageRouter
}

func NewRouter(groups *GroupOrchestrator, direct *DirectMessageRouter) *Router {
	return &Router{groups: groups, direct: direct}
}

func (r *Router) Handle(ctx context.Context, msg Message) {
	if msg.Text == "" && msg.Command == "" {
		return
	}
	switch msg.ChatKind {
	case ChatKindGroup:
		r.groups.HandleMessage(ctx, msg)
	default:
		r.direct.Handle(ctx, msg)
	}
}
