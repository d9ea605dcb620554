package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareTotalOrder(t *testing.T) {
	ordered := []Value{
		NewNull(),
		NewBool(false),
		NewBool(true),
		NewInt(1),
		NewDouble(1.5),
		NewString("a"),
		NewArray([]Value{NewInt(1)}),
		NewObject([]Entry{{Key: "a", Value: NewInt(1)}}),
	}
	for i := 0; i < len(ordered)-1; i++ {
		require.Equal(t, -1, Compare(ordered[i], ordered[i+1]), "index %d", i)
		require.Equal(t, 1, Compare(ordered[i+1], ordered[i]), "index %d", i)
	}
}

func TestRawTextRoundTrip(t *testing.T) {
	v := NewDoubleText(75.80, "75.80")
	require.Equal(t, "75.80", FormatNumber(v))
}

func TestAddOverflowPromotesToDouble(t *testing.T) {
	max := NewInt(9223372036854775807)
	sum, err := Add(max, NewInt(1))
	require.NoError(t, err)
	require.Equal(t, Double, sum.Type())
	require.Equal(t, "9223372036854775808", FormatNumber(sum))
}

func TestDivAlwaysProducesDouble(t *testing.T) {
	res, err := Div(NewInt(4), NewInt(2))
	require.NoError(t, err)
	require.Equal(t, Double, res.Type())
}

func TestObjectMergeRightWins(t *testing.T) {
	a := NewObject([]Entry{{Key: "a", Value: NewInt(1)}, {Key: "b", Value: NewInt(2)}})
	b := NewObject([]Entry{{Key: "b", Value: NewInt(3)}})
	merged, err := Add(a, b)
	require.NoError(t, err)
	v, _ := merged.Field("b")
	require.Equal(t, int64(3), v.AsInt())
}

func TestArraySubtractRemovesByEquality(t *testing.T) {
	a := NewArray([]Value{NewInt(1), NewInt(2), NewInt(3), NewInt(2)})
	b := NewArray([]Value{NewInt(2)})
	diff, err := Sub(a, b)
	require.NoError(t, err)
	require.Len(t, diff.Elems(), 2)
}

func TestStringMultiplyRepeats(t *testing.T) {
	res, err := Mul(NewString("ab"), NewInt(3))
	require.NoError(t, err)
	require.Equal(t, "ababab", res.Str())
}

func TestFieldOnNullIsNull(t *testing.T) {
	v, err := NewNull().Field("x")
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestFieldOnArrayIsTypeError(t *testing.T) {
	_, err := NewArray(nil).Field("x")
	require.Error(t, err)
}

func TestLenCodepoints(t *testing.T) {
	n, err := NewString("héllo").Len()
	require.NoError(t, err)
	require.Equal(t, int64(5), n)
}
