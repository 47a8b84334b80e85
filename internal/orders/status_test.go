package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from enums.OrderStatus
		to   enums.OrderStatus
		want bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusApproved, true},
		{enums.OrderStatusPending, enums.OrderStatusDispatched, false},
		{enums.OrderStatusApproved, enums.OrderStatusPending, true},
		{enums.OrderStatusApproved, enums.OrderStatusPartialDispatch, false},
		{enums.OrderStatusInProduction, enums.OrderStatusDispatched, true},
		{enums.OrderStatusPartialDispatch, enums.OrderStatusInProduction, true},
		{enums.OrderStatusDispatched, enums.OrderStatusDelivered, true},
		{enums.OrderStatusDispatched, enums.OrderStatusApproved, false},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled, true},
		{enums.OrderStatusDelivered, enums.OrderStatusDispatched, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, false},
		{enums.OrderStatusPending, enums.OrderStatusPending, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestEveryStatusCanBeCancelledExceptCancelled(t *testing.T) {
	for status := range transitions {
		if status == enums.OrderStatusCancelled {
			assert.Empty(t, AllowedTransitions(status))
			continue
		}
		assert.True(t, CanTransition(status, enums.OrderStatusCancelled), string(status))
	}
}

func TestCheckTransitionReportsAllowedTargets(t *testing.T) {
	err := CheckTransition(enums.OrderStatusPending, enums.OrderStatusDelivered)
	require.Error(t, err)
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInvalidTransition))

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []enums.OrderStatus{enums.OrderStatusApproved, enums.OrderStatusCancelled}, details["allowed"])

	require.NoError(t, CheckTransition(enums.OrderStatusPending, enums.OrderStatusApproved))
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	allowed := AllowedTransitions(enums.OrderStatusPending)
	allowed[0] = enums.OrderStatusDelivered
	assert.Equal(t, enums.OrderStatusApproved, AllowedTransitions(enums.OrderStatusPending)[0])
}

func TestStatusAfterDispatch(t *testing.T) {
	cases := []struct {
		name       string
		kind       enums.DispatchType
		ordered    int
		dispatched int
		want       enums.OrderStatus
	}{
		{"full always dispatched", enums.DispatchTypeFull, 10, 4, enums.OrderStatusDispatched},
		{"partial below total", enums.DispatchTypePartial, 10, 4, enums.OrderStatusPartialDispatch},
		{"partial reaching total", enums.DispatchTypePartial, 10, 10, enums.OrderStatusDispatched},
		{"partial above total", enums.DispatchTypePartial, 10, 12, enums.OrderStatusDispatched},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusAfterDispatch(tc.kind, tc.ordered, tc.dispatched))
		})
	}
}

func TestIsClosed(t *testing.T) {
	assert.True(t, IsClosed(enums.OrderStatusCancelled))
	assert.False(t, IsClosed(enums.OrderStatusDelivered))
	assert.False(t, IsClosed(enums.OrderStatusPending))
	assert.True(t, IsTerminal(enums.OrderStatusDelivered))
	assert.True(t, IsTerminal(enums.OrderStatusCancelled))
	assert.False(t, IsTerminal(enums.OrderStatusDispatched))
}
