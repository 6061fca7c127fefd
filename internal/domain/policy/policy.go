// Package policy decides who may do what to a quote. Authorize is a pure function of
// the action, the caller and the quote's ownership fields; it never looks at transport
// or framework state.
package policy

import (
	"fmt"
	"strings"

	"quotes_service/internal/domain/entities"
)

type Role string

const (
	RoleOwner       Role = "OWNER"
	RoleContractor  Role = "CONTRACTOR"
	RoleCustomer    Role = "CUSTOMER"
	RoleSalesperson Role = "SALESPERSON"
)

// Principal is the authenticated caller as asserted by the identity provider. Projects
// and Lots scope a customer to the work they commissioned.
type Principal struct {
	ID       string
	Roles    []Role
	Projects []string
	Lots     []string
}

func NewPrincipal(id string, roles ...string) Principal {
	p := Principal{ID: strings.TrimSpace(id)}
	for _, r := range roles {
		r = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(r), "ROLE_")))
		if r != "" {
			p.Roles = append(p.Roles, Role(r))
		}
	}
	return p
}

// WithScope returns a copy of p limited to the given project and lot references.
func (p Principal) WithScope(projects, lots []string) Principal {
	p.Projects = trimRefs(projects)
	p.Lots = trimRefs(lots)
	return p
}

// Covers reports whether q belongs to a project or lot in p's scope.
func (p Principal) Covers(q entities.Quote) bool {
	for _, ref := range p.Projects {
		if ref == q.ProjectRef {
			return true
		}
	}
	if q.LotRef == "" {
		return false
	}
	for _, ref := range p.Lots {
		if ref == q.LotRef {
			return true
		}
	}
	return false
}

func (p Principal) Has(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) Authenticated() bool {
	return p.ID != ""
}

// SeesEverything is true for roles with an unrestricted read view.
func (p Principal) SeesEverything() bool {
	return p.Has(RoleOwner) || p.Has(RoleSalesperson)
}

type Action string

const (
	ActionCreate      Action = "create"
	ActionCreateDraft Action = "create_draft"
	ActionUpdate      Action = "update"
	ActionSubmit      Action = "submit"
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionAcknowledge Action = "acknowledge"
	ActionView        Action = "view"
	ActionListAll     Action = "list_all"
)

// Authorize returns nil when p may perform action on q, or an error wrapping
// entities.ErrUnauthorized. q may be nil for actions that do not target an existing quote.
func Authorize(action Action, p Principal, q *entities.Quote) error {
	if !p.Authenticated() {
		return deny(action, p, "caller is not authenticated")
	}
	switch action {
	case ActionCreate:
		if p.Has(RoleContractor) {
			return nil
		}
		return deny(action, p, "only contractors create quotes")
	case ActionCreateDraft, ActionListAll:
		if p.Has(RoleOwner) {
			return nil
		}
		return deny(action, p, "owner role required")
	case ActionApprove, ActionReject:
		if p.Has(RoleOwner) {
			return nil
		}
		return deny(action, p, "owner role required")
	case ActionUpdate, ActionSubmit:
		if q == nil {
			return deny(action, p, "quote required")
		}
		if p.Has(RoleContractor) && q.ContractorRef == p.ID {
			return nil
		}
		return deny(action, p, "only the authoring contractor may change this quote")
	case ActionAcknowledge:
		if !p.Has(RoleCustomer) {
			return deny(action, p, "customer role required")
		}
		if q == nil {
			return deny(action, p, "quote required")
		}
		if p.Covers(*q) {
			return nil
		}
		return deny(action, p, "quote is outside the customer's projects and lots")
	case ActionView:
		if q == nil {
			return deny(action, p, "quote required")
		}
		if CanView(p, *q) {
			return nil
		}
		return deny(action, p, "quote is not visible to caller")
	}
	return deny(action, p, "unknown action")
}

// CanView implements read visibility: owners and salespeople see everything, contractors
// see the quotes they authored and customers see approved quotes of their own projects or lots.
func CanView(p Principal, q entities.Quote) bool {
	switch {
	case !p.Authenticated():
		return false
	case p.SeesEverything():
		return true
	case p.Has(RoleContractor) && q.ContractorRef == p.ID:
		return true
	case p.Has(RoleCustomer) && q.Status == entities.QuoteStatusApproved && p.Covers(q):
		return true
	}
	return false
}

// CanListContractor limits listing by contractor to the contractor themselves unless the
// caller has the unrestricted view.
func CanListContractor(p Principal, contractorRef string) error {
	if !p.Authenticated() {
		return deny(ActionView, p, "caller is not authenticated")
	}
	if p.SeesEverything() || (p.Has(RoleContractor) && p.ID == contractorRef) {
		return nil
	}
	return deny(ActionView, p, "contractors may only list their own quotes")
}

// FilterVisible keeps the quotes p may read, preserving order.
func FilterVisible(p Principal, quotes []entities.Quote) []entities.Quote {
	out := make([]entities.Quote, 0, len(quotes))
	for _, q := range quotes {
		if CanView(p, q) {
			out = append(out, q)
		}
	}
	return out
}

func trimRefs(refs []string) []string {
	var out []string
	for _, r := range refs {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func deny(action Action, p Principal, reason string) error {
	return fmt.Errorf("%w: %s denied for %q: %s", entities.ErrUnauthorized, action, p.ID, reason)
}
