package policy

import (
	"testing"

	"quotes_service/internal/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner       = NewPrincipal("owner-1", "OWNER")
	contractor  = NewPrincipal("contractor-1", "contractor")
	other       = NewPrincipal("contractor-2", "ROLE_CONTRACTOR")
	customer    = NewPrincipal("customer-1", "CUSTOMER").WithScope([]string{"proj-1"}, []string{"lot-9"})
	outsider    = NewPrincipal("customer-2", "CUSTOMER").WithScope([]string{"proj-2"}, nil)
	salesperson = NewPrincipal("sales-1", "SALESPERSON")
	anonymous   = Principal{}
)

func TestNewPrincipal_NormalizesRoles(t *testing.T) {
	p := NewPrincipal(" u1 ", "role_owner", " contractor ", "")
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, []Role{RoleOwner, RoleContractor}, p.Roles)
}

func TestAuthorize(t *testing.T) {
	mine := &entities.Quote{Number: "QT-0000001", ProjectRef: "proj-1", ContractorRef: "contractor-1", Status: entities.QuoteStatusDraft}
	lotOnly := &entities.Quote{Number: "QT-0000002", ProjectRef: "proj-3", LotRef: "lot-9", Status: entities.QuoteStatusApproved}

	cases := []struct {
		name   string
		action Action
		p      Principal
		q      *entities.Quote
		allow  bool
	}{
		{"contractor creates", ActionCreate, contractor, nil, true},
		{"owner cannot create", ActionCreate, owner, nil, false},
		{"anonymous cannot create", ActionCreate, anonymous, nil, false},
		{"owner creates draft", ActionCreateDraft, owner, nil, true},
		{"contractor cannot create draft", ActionCreateDraft, contractor, nil, false},
		{"owner approves", ActionApprove, owner, mine, true},
		{"contractor cannot approve", ActionApprove, contractor, mine, false},
		{"owner rejects", ActionReject, owner, mine, true},
		{"customer cannot reject", ActionReject, customer, mine, false},
		{"author updates", ActionUpdate, contractor, mine, true},
		{"other contractor cannot update", ActionUpdate, other, mine, false},
		{"owner cannot update", ActionUpdate, owner, mine, false},
		{"update needs quote", ActionUpdate, contractor, nil, false},
		{"author submits", ActionSubmit, contractor, mine, true},
		{"other contractor cannot submit", ActionSubmit, other, mine, false},
		{"customer acknowledges", ActionAcknowledge, customer, mine, true},
		{"customer acknowledges by lot", ActionAcknowledge, customer, lotOnly, true},
		{"customer outside project cannot acknowledge", ActionAcknowledge, outsider, mine, false},
		{"unscoped customer cannot acknowledge", ActionAcknowledge, NewPrincipal("customer-3", "CUSTOMER"), mine, false},
		{"acknowledge needs quote", ActionAcknowledge, customer, nil, false},
		{"owner cannot acknowledge", ActionAcknowledge, owner, mine, false},
		{"owner lists all", ActionListAll, owner, nil, true},
		{"salesperson cannot list all", ActionListAll, salesperson, nil, false},
		{"unknown action", Action("delete"), owner, mine, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.action, tc.p, tc.q)
			if tc.allow {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, entities.ErrUnauthorized)
		})
	}
}

func TestCanView(t *testing.T) {
	submitted := entities.Quote{ProjectRef: "proj-1", ContractorRef: "contractor-1", Status: entities.QuoteStatusSubmitted}
	approved := entities.Quote{ProjectRef: "proj-1", ContractorRef: "contractor-1", Status: entities.QuoteStatusApproved}

	assert.True(t, CanView(owner, submitted))
	assert.True(t, CanView(salesperson, submitted))
	assert.True(t, CanView(contractor, submitted))
	assert.False(t, CanView(other, submitted))
	assert.False(t, CanView(customer, submitted))
	assert.True(t, CanView(customer, approved))
	assert.False(t, CanView(anonymous, approved))
	assert.False(t, CanView(outsider, approved))

	require.ErrorIs(t, Authorize(ActionView, other, &submitted), entities.ErrUnauthorized)
	require.NoError(t, Authorize(ActionView, contractor, &submitted))
}

func TestCanListContractor(t *testing.T) {
	require.NoError(t, CanListContractor(contractor, "contractor-1"))
	require.NoError(t, CanListContractor(owner, "contractor-1"))
	require.NoError(t, CanListContractor(salesperson, "contractor-1"))
	require.ErrorIs(t, CanListContractor(other, "contractor-1"), entities.ErrUnauthorized)
	require.ErrorIs(t, CanListContractor(customer, "contractor-1"), entities.ErrUnauthorized)
}

func TestFilterVisible(t *testing.T) {
	quotes := []entities.Quote{
		{Number: "QT-0000001", ContractorRef: "contractor-1", Status: entities.QuoteStatusSubmitted},
		{Number: "QT-0000002", ContractorRef: "contractor-2", Status: entities.QuoteStatusSubmitted},
		{Number: "QT-0000003", ProjectRef: "proj-1", ContractorRef: "contractor-2", Status: entities.QuoteStatusApproved},
		{Number: "QT-0000004", ProjectRef: "proj-2", ContractorRef: "contractor-2", Status: entities.QuoteStatusApproved},
	}
	got := FilterVisible(contractor, quotes)
	require.Len(t, got, 1)
	assert.Equal(t, "QT-0000001", got[0].Number)

	got = FilterVisible(customer, quotes)
	require.Len(t, got, 1)
	assert.Equal(t, "QT-0000003", got[0].Number)

	assert.Len(t, FilterVisible(owner, quotes), 4)
}

func TestPrincipal_Covers(t *testing.T) {
	p := NewPrincipal("customer-1", "CUSTOMER").WithScope([]string{" proj-1 ", ""}, []string{"lot-1"})
	assert.Equal(t, []string{"proj-1"}, p.Projects)

	assert.True(t, p.Covers(entities.Quote{ProjectRef: "proj-1"}))
	assert.True(t, p.Covers(entities.Quote{ProjectRef: "proj-2", LotRef: "lot-1"}))
	assert.False(t, p.Covers(entities.Quote{ProjectRef: "proj-2"}))
	assert.False(t, p.Covers(entities.Quote{ProjectRef: "proj-2", LotRef: "lot-2"}))

	empty := NewPrincipal("customer-2", "CUSTOMER").WithScope(nil, []string{""})
	assert.False(t, empty.Covers(entities.Quote{ProjectRef: "proj-1"}))
}
