// Package gate is a small profile-and-policy authorization layer.
//
// A HybridGate first asks the caller's Profile whether it grants
// "resource:action", then, when a concrete resource is supplied, asks the
// Policy registered for that resource type. The package knows nothing about
// the domain; U is whatever identifies a caller (a user id here).
package gate

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoPolicyDefined = errors.New("no policy defined for resource")
)

// Action is the verb half of a permission.
type Action string

const (
	ActionView     Action = "view"
	ActionList     Action = "list"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionFinalize Action = "finalize"
	ActionCancel   Action = "cancel"
	ActionPay      Action = "pay"
	ActionRefund   Action = "refund"
	ActionAnalyze  Action = "analyze"
	ActionGenerate Action = "generate"
	ActionEvaluate Action = "evaluate"
)

// Wildcard matches any resource or any action.
const Wildcard = "*"

// PermissionSuperAdmin grants everything.
const PermissionSuperAdmin Permission = "*:*"

// Permission is "resource:action". Either side may be the wildcard.
type Permission string

func NewPermission(resource string, action Action) Permission {
	return Permission(resource + ":" + string(action))
}

// Parse splits p; malformed permissions yield empty parts.
func (p Permission) Parse() (resource string, action Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok || res == "" || act == "" {
		return "", ""
	}
	return res, Action(act)
}

// Valid reports whether p has both a resource and an action.
func (p Permission) Valid() bool {
	res, _ := p.Parse()
	return res != ""
}

// Matches reports whether the granted permission p covers requested.
// "*:*", "invoice:*" and "*:view" are all accepted.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, reqAct := requested.Parse()
	if res == "" || reqRes == "" {
		return false
	}
	resOK := res == Wildcard || res == reqRes
	actOK := string(act) == Wildcard || act == reqAct
	return resOK && actOK
}

// Policy decides whether user may perform action on a concrete resource.
type Policy[U any] interface {
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}
