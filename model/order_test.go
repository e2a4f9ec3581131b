package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCourseIDs(t *testing.T) {
	assert.Equal(t, []uint{1, 2, 3}, ParseCourseIDs("1,2,3"))
	assert.Equal(t, []uint{7, 13, 21}, ParseCourseIDs(" 7, 13 ,, 21 "))
	assert.Equal(t, []uint{5}, ParseCourseIDs("abc,5,-1"))
	assert.Nil(t, ParseCourseIDs(""))
	assert.Nil(t, ParseCourseIDs(" , ,"))
}

func TestJoinCourseIDsRoundTrip(t *testing.T) {
	ids := []uint{12, 34, 56}
	assert.Equal(t, "12,34,56", JoinCourseIDs(ids))
	assert.Equal(t, ids, ParseCourseIDs(JoinCourseIDs(ids)))
	assert.Equal(t, "", JoinCourseIDs(nil))
}

func TestOrderCourseIDList(t *testing.T) {
	order := Order{CourseIDs: "3,9"}
	assert.Equal(t, []uint{3, 9}, order.CourseIDList())
}
