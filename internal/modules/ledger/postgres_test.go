package ledger

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReceiptNumber(t *testing.T) {
	assert.Equal(t, "OR-000042",
		receiptNumber(sql.NullString{String: "OR-000042", Valid: true}, "P-1A2B3C4D"))

	// A schema without a receipt default yields NULL: the provisional
	// number stands rather than failing the replay.
	assert.Equal(t, "P-1A2B3C4D", receiptNumber(sql.NullString{}, "P-1A2B3C4D"))
	assert.Equal(t, "P-1A2B3C4D",
		receiptNumber(sql.NullString{String: "", Valid: true}, "P-1A2B3C4D"))
}
