package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kinetica/internal/posesim"
	"github.com/okian/kinetica/internal/simulator"
)

func execute(args ...string) (*bytes.Buffer, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return &out, cmd.Execute()
}

func TestPoseSimCommands(t *testing.T) {
	Convey("Given the pose-sim command", t, func() {
		Convey("generate writes JSON lines to stdout", func() {
			out, err := execute("generate", "--reps", "1", "--log-level", "error")
			So(err, ShouldBeNil)
			frames, err := simulator.ReadFrames(out)
			So(err, ShouldBeNil)
			tr := simulator.DefaultTrajectory()
			tr.Reps = 1
			So(frames, ShouldHaveLength, tr.Len())
		})

		Convey("generate and replay round-trip through a file", func() {
			path := filepath.Join(t.TempDir(), "squats.jsonl")
			_, err := execute("generate", "--reps", "2", "--out", path, "--log-level", "error")
			So(err, ShouldBeNil)

			out, err := execute("replay", "--file", path, "--smoothing", "1", "--log-level", "error")
			So(err, ShouldBeNil)
			var rep posesim.Report
			So(json.Unmarshal(out.Bytes(), &rep), ShouldBeNil)
			So(rep.Reps, ShouldHaveLength, 2)
		})

		Convey("offline analyzes a generated set", func() {
			out, err := execute("offline", "--reps", "2", "--fault", "knee_valgus", "--smoothing", "1", "--log-level", "error")
			So(err, ShouldBeNil)
			var rep posesim.Report
			So(json.Unmarshal(out.Bytes(), &rep), ShouldBeNil)
			So(rep.Exercise, ShouldEqual, "squat")
			So(rep.Frames, ShouldBeGreaterThan, 0)
			So(rep.Compensations, ShouldNotBeEmpty)
		})

		Convey("replay requires a file", func() {
			_, err := execute("replay")
			So(err, ShouldNotBeNil)
		})

		Convey("unknown faults are rejected", func() {
			_, err := execute("offline", "--fault", "wobble")
			So(err, ShouldNotBeNil)
		})

		Convey("invalid log settings are rejected", func() {
			_, err := execute("generate", "--log-level", "loud")
			So(err, ShouldNotBeNil)
			_, err = execute("generate", "--log-format", "xml")
			So(err, ShouldNotBeNil)
		})
	})
}
