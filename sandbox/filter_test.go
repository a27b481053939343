package sandbox

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFilterRejects(t *testing.T) {
	filter := DefaultFilter()

	tests := []struct {
		language  string
		code      string
		construct string
	}{
		{"javascript", `const cp = require('child_process'); cp.execSync('ls')`, "process spawning"},
		{"javascript", `const fs = require("fs")`, "filesystem module"},
		{"javascript", `process.exit(1)`, "process termination"},
		{"javascript", `eval("1+1")`, "dynamic evaluation"},
		{"javascript", `new Function("return 1")()`, "dynamic evaluation"},
		{"python", "import os\nos.system('ls')", "os module"},
		{"python", "from subprocess import run", "process spawning"},
		{"python", "import sys\nsys.exit(0)", "sys module"},
		{"python", "exec('print(1)')", "dynamic evaluation"},
		{"python", "m = __import__('os')", "dynamic import"},
		{"java", `Runtime.getRuntime().exec("ls");`, "process spawning"},
		{"java", `new ProcessBuilder("ls").start();`, "process spawning"},
		{"java", `System.exit(0);`, "process termination"},
		{"cpp", "#include <cstdlib>\nint main(){}", "cstdlib header"},
		{"cpp", `int main(){ system("ls"); }`, "process spawning"},
		{"c", "#include <stdlib.h>\nint main(){}", "stdlib header"},
		{"c", `int main(){ execvp("ls", 0); }`, "process spawning"},
		{"go", "import \"os/exec\"", "process spawning"},
		{"go", "os.Exit(3)", "process termination"},
		{"rust", "std::process::Command::new(\"ls\")", "process spawning"},
		{"php", `<?php shell_exec("ls");`, "process spawning"},
		{"php", `<?php eval("echo 1;");`, "dynamic evaluation"},
	}

	for _, tt := range tests {
		t.Run(tt.language+"/"+tt.construct, func(t *testing.T) {
			err := filter.Check(tt.code, tt.language)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRejected))

			var rej *RejectionError
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tt.construct, rej.Construct)
			assert.Contains(t, err.Error(), "Potentially dangerous code detected")
			assert.Contains(t, err.Error(), AdvisoryNote)
		})
	}
}

func TestDefaultFilterAllows(t *testing.T) {
	filter := DefaultFilter()

	tests := []struct {
		language string
		code     string
	}{
		{"javascript", "function greet(name) { return `Hello, ${name}`; }\nconsole.log(greet('x'));"},
		{"javascript", "const add = function(a, b) { return a + b; };"},
		{"python", "name = input()\nprint(f'Hello, {name}')"},
		{"python", "import math\nprint(math.sqrt(4))"},
		{"python", "# import os is mentioned in a comment only after code\nx = 1  # import os"},
		{"java", "public class Main { public static void main(String[] a) { System.out.println(1); } }"},
		{"cpp", "#include <iostream>\nint main(){ std::cout << 1; }"},
		{"c", "#include <stdio.h>\nint main(){ printf(\"hi\"); return 0; }"},
		{"go", "package main\nimport \"fmt\"\nfunc main(){ fmt.Println(1) }"},
		{"cobol", "CALL 'SYSTEM'"},
	}

	for _, tt := range tests {
		t.Run(tt.language, func(t *testing.T) {
			assert.NoError(t, filter.Check(tt.code, tt.language))
		})
	}
}

func TestFilterFirstMatchWins(t *testing.T) {
	filter := NewFilter(map[string][]Rule{
		"Python": {
			rule("first", `alpha`),
			rule("second", `beta`),
		},
	})

	err := filter.Check("beta alpha", "python")
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "first", rej.Construct)
	assert.Equal(t, "python", rej.Language)
	assert.Equal(t, []string{"python"}, filter.Languages())
}
