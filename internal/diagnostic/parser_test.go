package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

func TestParseCompilerLines(t *testing.T) {
	tests := []struct {
		name string
		line string
		want models.Diagnostic
	}{
		{
			name: "line and column",
			line: "Target/src/led.c:12:5: error: 'HAL_GPIO_WritePin' undeclared (first use in this function)",
			want: models.Diagnostic{
				File: "Target/src/led.c", Line: 12, Column: 5,
				Severity: models.DiagError,
				Message:  "'HAL_GPIO_WritePin' undeclared (first use in this function)",
			},
		},
		{
			name: "no column",
			line: "main.c:40: warning: unused variable 'x'",
			want: models.Diagnostic{
				File: "main.c", Line: 40,
				Severity: models.DiagWarning,
				Message:  "unused variable 'x'",
			},
		},
		{
			name: "numeric code",
			line: "src/temp.c:7:1: error: (1098) conflicting declarations for variable \"t\"",
			want: models.Diagnostic{
				File: "src/temp.c", Line: 7, Column: 1,
				Severity: models.DiagError, Code: "1098",
				Message: "conflicting declarations for variable \"t\"",
			},
		},
		{
			name: "fatal error",
			line: "inc/led.h:3:10: fatal error: hal_gpio.h: No such file or directory",
			want: models.Diagnostic{
				File: "inc/led.h", Line: 3, Column: 10,
				Severity: models.DiagFatal,
				Message:  "hal_gpio.h: No such file or directory",
			},
		},
		{
			name: "note",
			line: "led.c:2:6: note: previous definition of 'led_on' was here",
			want: models.Diagnostic{
				File: "led.c", Line: 2, Column: 6,
				Severity: models.DiagNote,
				Message:  "previous definition of 'led_on' was here",
			},
		},
		{
			name: "windows path",
			line: `C:\emic\Target\main.c:88:3: error: expected ';' before '}' token`,
			want: models.Diagnostic{
				File: `C:\emic\Target\main.c`, Line: 88, Column: 3,
				Severity: models.DiagError,
				Message:  "expected ';' before '}' token",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.line)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestParseLinkerLine(t *testing.T) {
	got := Parse("main.o(.text+0x24): In function `main': undefined reference to `HAL_Timer_Start'")
	require.Len(t, got, 1)
	assert.Equal(t, "main.o", got[0].File)
	assert.Equal(t, "main", got[0].Function)
	assert.Equal(t, models.DiagError, got[0].Severity)
	assert.Equal(t, "undefined reference to `HAL_Timer_Start'", got[0].Message)
	assert.Zero(t, got[0].Line)

	got = Parse("led.o(.text): undefined reference to 'getSystemMilis'")
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Function)
	assert.Equal(t, "undefined reference to 'getSystemMilis'", got[0].Message)
}

func TestParseConcatenatesWithoutDedup(t *testing.T) {
	raw := "main.o(.text): undefined reference to 'x'\n" +
		"a.c:1:1: error: boom\n" +
		"make: *** [all] Error 1\n" +
		"a.c:1:1: error: boom\n"

	got := Parse(raw)
	require.Len(t, got, 3)
	// compiler matches first, in input order, duplicates kept
	assert.Equal(t, "a.c", got[0].File)
	assert.Equal(t, "a.c", got[1].File)
	assert.Equal(t, "main.o", got[2].File)
}

func TestParseOrDegenerate(t *testing.T) {
	got := ParseOrDegenerate("  Compilation service error: xc16-gcc not found  ")
	require.Len(t, got, 1)
	assert.Equal(t, models.DiagError, got[0].Severity)
	assert.Equal(t, "Compilation service error: xc16-gcc not found", got[0].Message)
	assert.Empty(t, got[0].File)

	got = ParseOrDegenerate("a.c:3: error: x")
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Line)
}

func TestParseIgnoresNoise(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("led.c: In function 'led_init':\nBUILD FAILED"))
}
