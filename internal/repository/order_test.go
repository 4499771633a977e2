package repository

import (
	"strings"
	"testing"

	"orderdesk/internal/entity"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceQuery(t *testing.T) {
	builder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	testCases := []struct {
		desc       string
		status     entity.Status
		wantStatus bool
	}{
		{desc: "EmptyStatusKeepsStored", status: "", wantStatus: false},
		{desc: "StatusWritten", status: entity.StatusShipped, wantStatus: true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			order := &entity.Order{
				CustomerName: "Asha Rao",
				Phone:        "9876543210",
				Address:      "12 MG Road, Bengaluru",
				Items:        []entity.OrderItem{{Name: "Rubber Ducky", Quantity: 2, Price: 450}},
				Status:       tc.status,
			}

			query, err := replaceQuery(builder, uuid.New(), order)
			require.NoError(t, err)

			sql, args, err := query.ToSql()
			require.NoError(t, err)

			assert.Contains(t, sql, "customer_name = $")
			assert.Contains(t, sql, "updated_at = now()")
			assert.Equal(t, tc.wantStatus, containsSet(sql, "status"))
			if tc.wantStatus {
				assert.Contains(t, args, string(tc.status))
			}
		})
	}
}

// containsSet reports whether column is assigned in the SET clause.
func containsSet(sql, column string) bool {
	set, _, _ := strings.Cut(sql, " WHERE ")
	return strings.Contains(set, " "+column+" = ")
}
