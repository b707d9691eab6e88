// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package template_test

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"
)

// TestCompileWithFuzzedValues pushes randomized variable values through a
// whole compile and checks that interpolation reproduces them exactly.
func TestCompileWithFuzzedValues(t *testing.T) {
	randSource := getRandSource(t)

	validWordRange := fuzz.UnicodeRange{First: 'a', Last: 'z'}
	fuzzWords := fuzz.New().RandSource(randSource).Funcs(func(s *string, c fuzz.Continue) {
		validWordRange.CustomStringFuzzFunc()(s, c)
	})

	validNumberRange := fuzz.UnicodeRange{First: '0', Last: '9'}
	fuzzNumbers := fuzz.New().RandSource(randSource).Funcs(func(s *string, c fuzz.Continue) {
		validNumberRange.CustomStringFuzzFunc()(s, c)
	})

	for i := 0; i < 100; i++ {
		var word, number string
		fuzzWords.Fuzz(&word)
		fuzzNumbers.Fuzz(&number)

		t.Run(fmt.Sprintf("word [%v], number [%v]", word, number), func(t *testing.T) {
			compiler := compileString(t, false,
				"--- !vars\n"+
					"word: '"+word+"'\n"+
					"number: '"+number+"'\n"+
					"---\n"+
					"Resources:\n"+
					"    Config:\n"+
					"        Type: AWS::SSM::Parameter\n"+
					"        Properties:\n"+
					"            Value: $$word-$$number\n")

			require.Equal(t,
				mapWith("Config", mapWith(
					"Type", "AWS::SSM::Parameter",
					"Properties", mapWith("Value", word+"-"+number))),
				docValue(t, compiler.Doc, "Resources"))
		})
	}
}

func getRandSource(t *testing.T) rand.Source {
	var seed int64
	if os.Getenv("CLOUDFORMER_SEED") == "" {
		seed = time.Now().UnixNano()
	} else {
		envSeed, err := strconv.Atoi(os.Getenv("CLOUDFORMER_SEED"))
		require.NoError(t, err)
		seed = int64(envSeed)
	}

	t.Logf("Seed used was: [%v]. To reproduce this test failure, re-run the test with `export CLOUDFORMER_SEED=%v`", seed, seed)

	return rand.NewSource(seed)
}
