package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalibrator_DisabledForNonRC(t *testing.T) {
	c := NewCalibrator(LFConfig{Source: SourceXTAL})
	assert.False(t, c.Enabled())
	for i := 0; i < 100; i++ {
		assert.False(t, c.Tick())
	}

	c = NewCalibrator(LFConfig{Source: SourceRC})
	assert.False(t, c.Enabled(), "rc_ctiv 0 disables periodic calibration")
}

func TestCalibrator_TickInterval(t *testing.T) {
	c := NewCalibrator(LFConfig{Source: SourceRC, RCInterval: 4, RCTempInterval: 0})

	var elapsed []int
	for i := 1; i <= 12; i++ {
		if c.Tick() {
			elapsed = append(elapsed, i)
		}
	}
	assert.Equal(t, []int{4, 8, 12}, elapsed)
}

func TestCalibrator_Decide(t *testing.T) {
	tests := []struct {
		name         string
		tempInterval uint8
		temps        []int32
		want         []bool
	}{
		{
			name:         "always calibrate",
			tempInterval: 0,
			temps:        []int32{100, 100, 100, 100},
			want:         []bool{true, true, true, true},
		},
		{
			name:         "only on temperature change",
			tempInterval: 1,
			temps:        []int32{100, 100, 101, 102, 102, 90},
			want:         []bool{true, false, false, true, false, true},
		},
		{
			name:         "forced every second interval",
			tempInterval: 2,
			temps:        []int32{100, 100, 100, 100, 100},
			want:         []bool{true, false, true, false, true},
		},
		{
			name:         "temperature change resets forced count",
			tempInterval: 3,
			temps:        []int32{100, 100, 104, 104, 104, 104},
			want:         []bool{true, false, true, false, false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCalibrator(LFConfig{Source: SourceRC, RCInterval: 16, RCTempInterval: tt.tempInterval})
			var got []bool
			for _, temp := range tt.temps {
				got = append(got, c.Decide(temp))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalibrator_RunState(t *testing.T) {
	c := NewCalibrator(DefaultLFConfig())

	assert.False(t, c.Start(), "nothing pending")
	assert.True(t, c.Request())
	assert.False(t, c.Request(), "already pending")
	assert.True(t, c.Pending())

	assert.True(t, c.Start())
	assert.True(t, c.Running())
	assert.False(t, c.Pending())
	assert.False(t, c.Request(), "already running")

	assert.True(t, c.Done())
	assert.False(t, c.Done())
	assert.True(t, c.Request())

	c.Reset()
	assert.False(t, c.Pending())
	assert.True(t, c.Enabled(), "reset keeps configuration")
}
