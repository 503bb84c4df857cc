package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLog_Adjust(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	tests := []struct {
		name            string
		in              *Log
		wantOutput      []string
		wantErrorOutput []string
		wantLevel       zapcore.Level
		wantErr         bool
		errMsg          string
	}{
		{
			name:            "default config",
			in:              NewLog(),
			wantOutput:      []string{"stderr"},
			wantErrorOutput: []string{"stderr"},
			wantLevel:       zapcore.InfoLevel,
		},
		{
			name: "rotation",
			in: func() *Log {
				l := NewLog()
				l.Zap.OutputPaths = []string{"test-output-path1", "/test-output-path2", "stderr", "stdout"}
				l.Zap.ErrorOutputPaths = nil
				l.EnableRotation = true
				l.Level = "DEBUG"
				return l
			}(),
			wantOutput:      []string{"rotate:" + filepath.Join(wd, "test-output-path1"), "rotate:/test-output-path2", "stderr", "stdout"},
			wantErrorOutput: []string{"rotate:" + filepath.Join(wd, "test-output-path1"), "rotate:/test-output-path2", "stderr", "stdout"},
			wantLevel:       zapcore.DebugLevel,
		},
		{
			name: "separate error output",
			in: func() *Log {
				l := NewLog()
				l.Zap.OutputPaths = []string{"stdout"}
				l.Zap.ErrorOutputPaths = []string{"stderr"}
				l.Level = "error"
				return l
			}(),
			wantOutput:      []string{"stdout"},
			wantErrorOutput: []string{"stderr"},
			wantLevel:       zapcore.ErrorLevel,
		},
		{
			name: "invalid log level",
			in: func() *Log {
				l := NewLog()
				l.Level = "BAD"
				return l
			}(),
			wantErr: true,
			errMsg:  "parse log level",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			err := tt.in.Adjust()

			if tt.wantErr {
				re.ErrorContains(err, tt.errMsg)
				return
			}
			re.NoError(err)
			re.Equal(tt.wantOutput, tt.in.Zap.OutputPaths)
			re.Equal(tt.wantErrorOutput, tt.in.Zap.ErrorOutputPaths)
			re.Equal(tt.wantLevel, tt.in.Zap.Level.Level())
		})
	}
}

func TestLog_AdjustTwice(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	l := NewLog()
	l.EnableRotation = true
	l.Zap.OutputPaths = []string{"/var/log/rocketmq.log"}
	re.NoError(l.Adjust())
	re.NoError(l.Adjust())
	re.Equal([]string{"rotate:/var/log/rocketmq.log"}, l.Zap.OutputPaths)
}

func TestLogRotation(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	tempDir := t.TempDir()

	l := NewLog()
	l.EnableRotation = true
	l.Rotate.MaxSize = 1
	l.Rotate.MaxBackups = 3
	l.Zap.OutputPaths = []string{filepath.Join(tempDir, "test1", "client.log")}

	err := l.Adjust()
	re.NoError(err)
	logger, err := l.Logger()
	re.NoError(err)

	msg := string(make([]byte, 1<<12))
	for i := 0; i < 4096; i++ {
		logger.Info(msg)
	}

	entries, err := os.ReadDir(filepath.Join(tempDir, "test1"))
	re.NoError(err)
	re.Len(entries, 4)
	for _, entry := range entries {
		info, err := entry.Info()
		re.NoError(err)
		re.LessOrEqual(info.Size(), int64(1<<20))
	}

	// the sink is registered once per process
	_, err = l.Logger()
	re.NoError(err)
}

func TestLog_Logger(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	l := NewLog()
	l.Zap.Encoding = "yaml"
	re.NoError(l.Adjust())
	_, err := l.Logger()
	re.ErrorContains(err, "build logger")

	l = NewLog()
	re.NoError(l.Adjust())
	logger, err := l.Logger()
	re.NoError(err)
	re.True(logger.Core().Enabled(zap.InfoLevel))
	re.False(logger.Core().Enabled(zap.DebugLevel))
}

func Test_encodeCaller(t *testing.T) {
	tests := []struct {
		name   string
		caller zapcore.EntryCaller
		want   string
	}{
		{
			name:   "undefined",
			caller: zapcore.EntryCaller{},
			want:   "<unknown>",
		},
		{
			name:   "deep path",
			caller: zapcore.EntryCaller{Defined: true, File: "/go/src/rocketmq-client/pkg/rpc/client/client.go", Line: 42},
			want:   "rpc/client/client.go:42",
		},
		{
			name:   "short path",
			caller: zapcore.EntryCaller{Defined: true, File: "client/client.go", Line: 7},
			want:   "client/client.go:7",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			enc := &stringArrayEncoder{}
			encodeCaller(tt.caller, enc)
			re.Equal([]string{tt.want}, enc.values)
		})
	}
}

func Test_indexByteBackward(t *testing.T) {
	type args struct {
		s   string
		c   byte
		cnt int
	}
	tests := []struct {
		name string
		args args
		want int
	}{
		{
			name: "normal",
			args: args{s: "a/b/c/d/e.go", c: '/', cnt: 2},
			want: 5,
		},
		{
			name: "not found",
			args: args{s: "a/b/c/d/e.go", c: '/', cnt: 10},
			want: -1,
		},
		{
			name: "cnt is 0",
			args: args{s: "a/b/c/d/e.go", c: '/', cnt: 0},
			want: 12,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			got := indexByteBackward(tt.args.s, tt.args.c, tt.args.cnt)
			re.Equal(tt.want, got)
		})
	}
}

type stringArrayEncoder struct {
	zapcore.PrimitiveArrayEncoder
	values []string
}

func (e *stringArrayEncoder) AppendString(s string) {
	e.values = append(e.values, s)
}
