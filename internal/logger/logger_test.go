package logger

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(parseLevel("debug"), ShouldEqual, zapcore.DebugLevel)
		So(parseLevel("info"), ShouldEqual, zapcore.InfoLevel)
		So(parseLevel("warn"), ShouldEqual, zapcore.WarnLevel)
		So(parseLevel("error"), ShouldEqual, zapcore.ErrorLevel)

		Convey("Then unknown levels fall back to info", func() {
			So(parseLevel("verbose"), ShouldEqual, zapcore.InfoLevel)
		})
	})
}

func TestConvertFields(t *testing.T) {
	Convey("Given key-value pairs", t, func() {
		fields := convertFields("user_id", "u1", "points", 7)

		Convey("Then each pair becomes a zap field", func() {
			So(fields, ShouldHaveLength, 2)
			So(fields[0], ShouldResemble, zap.Any("user_id", "u1"))
			So(fields[1], ShouldResemble, zap.Any("points", 7))
		})
	})

	Convey("Given a dangling key", t, func() {
		fields := convertFields("user_id", "u1", "orphan")

		Convey("Then the dangling key is dropped", func() {
			So(fields, ShouldHaveLength, 1)
		})
	})
}

func TestDevelopment(t *testing.T) {
	Convey("Given the development preset", t, func() {
		log := Development("rankrunner")

		Convey("Then debug entries are enabled", func() {
			So(log, ShouldNotBeNil)
			So(log.zap.Core().Enabled(zapcore.DebugLevel), ShouldBeTrue)
		})
	})
}
