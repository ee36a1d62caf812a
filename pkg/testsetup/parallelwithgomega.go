// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"testing"

	"github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/AccelByte/extend-match-watcher/pkg/envelope"
)

type GomegaWithScope struct {
	TestScope *envelope.Scope
	// Log is a captured logger for components under test; LogHook holds its entries.
	Log     *logrus.Entry
	LogHook *test.Hook
	*gomega.GomegaWithT
}

func ParallelWithGomega(t *testing.T) GomegaWithScope {
	t.Parallel()
	return WithGomega(t)
}

func WithGomega(t *testing.T) GomegaWithScope {
	log, hook := NewTestLogger()
	return GomegaWithScope{
		TestScope:   NewTestScope(),
		Log:         log,
		LogHook:     hook,
		GomegaWithT: gomega.NewGomegaWithT(t),
	}
}
