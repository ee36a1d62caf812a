// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/AccelByte/extend-match-watcher/pkg/envelope"
	"github.com/AccelByte/extend-match-watcher/pkg/testsetup"
)

func TestSetup(t *testing.T) {
	g := testsetup.WithGomega(t)
	shutdown, err := Setup("match-watcher-test", "", g.Log)
	require.NoError(t, err)
	defer shutdown(context.Background())

	scope := envelope.NewRootScope(context.Background(), "test", "")
	defer scope.Finish()
	assert.Len(t, scope.TraceID, 32)

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(scope.Ctx, carrier)
	assert.NotEmpty(t, carrier.Get("x-b3-traceid"))
	assert.Equal(t, scope.TraceID, carrier.Get("x-b3-traceid"))
}
