package types_test

import (
	"encoding/json"
	"sort"
	"testing"

	types "github.com/okian/kinetica/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntry(t *testing.T) {
	Convey("Given an Entry struct", t, func() {
		Convey("When creating an entry with zero values", func() {
			entry := types.Entry{}

			Convey("Then it should have default values", func() {
				So(entry.Rank, ShouldEqual, 0)
				So(entry.SessionID, ShouldEqual, "")
				So(entry.Score, ShouldEqual, 0.0)
				So(entry.Reps, ShouldEqual, 0)
			})
		})

		Convey("When encoding to JSON", func() {
			b, err := json.Marshal(types.Entry{Rank: 1, SessionID: "s-1", Exercise: "squat", Score: 87.5, Reps: 4})

			Convey("Then it uses snake_case keys", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, `{"rank":1,"session_id":"s-1","exercise":"squat","score":87.5,"reps":4}`)
			})
		})
	})
}

func TestEntryOrdering(t *testing.T) {
	Convey("Given entries with mixed scores", t, func() {
		entries := []types.Entry{
			{SessionID: "c", Score: 80},
			{SessionID: "b", Score: 92.5},
			{SessionID: "a", Score: 80},
			{SessionID: "d", Score: 60},
		}

		Convey("When sorting with Less", func() {
			sort.Slice(entries, func(i, j int) bool { return entries[i].Less(entries[j]) })

			Convey("Then higher scores come first and ties break by session id", func() {
				ids := make([]string, 0, len(entries))
				for _, e := range entries {
					ids = append(ids, e.SessionID)
				}
				So(ids, ShouldResemble, []string{"b", "a", "c", "d"})
			})
		})

		Convey("An entry never ranks ahead of itself", func() {
			So(entries[0].Less(entries[0]), ShouldBeFalse)
		})
	})
}
