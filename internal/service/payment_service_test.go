package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studiovault/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePackagePaymentIntent(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 19900)
	require.NoError(t, err)
	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, int64(19900), res.AmountCents)

	p, err := env.store.GetPaymentByIntentID(ctx, res.IntentID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
	assert.Equal(t, res.PaymentID, p.PaymentID)
	assert.Equal(t, model.PackageAdditional3Videos, *p.PackageType)
	assert.Equal(t, "usd", p.Currency)
	assert.Equal(t, p.PaymentID, env.processor.intents[res.IntentID].Metadata["payment_id"])

	// No entitlement before confirmation.
	owned, err := env.access.HasPackage(ctx, "u1", "p1", model.PackageAdditional3Videos)
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestCreatePackagePaymentIntentValidation(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	_, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", "platinum", 0)
	assert.ErrorIs(t, err, model.ErrInvalidPackage)

	_, err = env.payments.CreatePackagePaymentIntent(ctx, "u1", "missing", model.PackageAdditional3Videos, 0)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAllRemainingContent, 100)
	assert.ErrorIs(t, err, model.ErrAmountMismatch)

	assert.Empty(t, env.store.payments)
}

func TestCreatePackagePaymentIntentUsesProjectOverride(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	override := int64(29900)
	env.store.projects["p1"].AllContentPriceCents = &override

	res, err := env.payments.CreatePackagePaymentIntent(context.Background(), "u1", "p1", model.PackageAllRemainingContent, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(29900), res.AmountCents)
}

func TestCreatePackagePaymentIntentAlreadyOwned(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	env.store.entitlements[key("u1", "p1")] = &model.ProjectEntitlement{UserID: "u1", ProjectID: "p1", HasAllRemainingContent: true}
	ctx := context.Background()

	_, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAllRemainingContent, 0)
	assert.ErrorIs(t, err, model.ErrAlreadyOwned)

	// Superseded by all_remaining_content.
	_, err = env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	assert.ErrorIs(t, err, model.ErrAlreadyOwned)
}

func TestCreateContentPaymentIntentAlreadyOwned(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 2, 1)
	ctx := context.Background()

	_, err := env.selection.SelectFree(ctx, "u1", "p1", "v1")
	require.NoError(t, err)

	_, err = env.payments.CreateContentPaymentIntent(ctx, "u1", "v1")
	assert.ErrorIs(t, err, model.ErrAlreadyOwned)

	res, err := env.payments.CreateContentPaymentIntent(ctx, "u1", "h1")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), res.AmountCents)

	env.processor.succeed(res.IntentID, "evt_1")
	_, err = env.payments.ConfirmPayment(ctx, res.IntentID)
	require.NoError(t, err)

	_, err = env.payments.CreateContentPaymentIntent(ctx, "u1", "h1")
	assert.ErrorIs(t, err, model.ErrAlreadyOwned)

	_, err = env.payments.CreateContentPaymentIntent(ctx, "u1", "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateIntentProcessorErrorLeavesNoRow(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	env.processor.createErr = model.ErrPaymentProcessor

	_, err := env.payments.CreatePackagePaymentIntent(context.Background(), "u1", "p1", model.PackageAdditional3Videos, 0)
	assert.ErrorIs(t, err, model.ErrPaymentProcessor)
	assert.Empty(t, env.store.payments)
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAllRemainingContent, 0)
	require.NoError(t, err)
	env.processor.setStatus(res.IntentID, IntentStatusSucceeded)

	granted := 0
	for i := 0; i < 5; i++ {
		out, err := env.payments.ConfirmPayment(ctx, res.IntentID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusSucceeded, out.Payment.Status)
		if out.Granted {
			granted++
		}
	}
	assert.Equal(t, 1, granted)
	assert.Equal(t, 1, env.store.grants)
	assert.Equal(t, 1, env.publisher.count())
}

func TestConfirmPaymentConcurrentGrantsOnce(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	payload := env.processor.succeed(res.IntentID, "evt_race")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = env.payments.ConfirmPayment(ctx, res.IntentID)
		}()
		go func() {
			defer wg.Done()
			_ = env.payments.HandleWebhook(ctx, payload, "valid")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, env.store.grants)
	assert.Equal(t, 1, env.publisher.count())
}

func TestConfirmPaymentStillPending(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)

	_, err = env.payments.VerifyPayment(ctx, "u1", res.IntentID, model.PaymentTarget{ProjectID: "p1"})
	assert.ErrorIs(t, err, model.ErrPaymentNotSucceeded)
	assert.Equal(t, model.PaymentStatusPending, env.store.payments[res.IntentID].Status)
}

func TestConfirmPaymentProcessorTimeoutStaysPending(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	env.processor.setStatus(res.IntentID, IntentStatusSucceeded)
	env.processor.getErr = errors.Join(model.ErrPaymentProcessor, context.DeadlineExceeded)

	_, err = env.payments.ConfirmPayment(ctx, res.IntentID)
	assert.ErrorIs(t, err, model.ErrPaymentProcessor)
	assert.Equal(t, model.PaymentStatusPending, env.store.payments[res.IntentID].Status)
	assert.Zero(t, env.store.grants)

	// Retry after the processor recovers.
	env.processor.getErr = nil
	out, err := env.payments.ConfirmPayment(ctx, res.IntentID)
	require.NoError(t, err)
	assert.True(t, out.Granted)
}

func TestConfirmPaymentGrantFailureLeavesPending(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	env.processor.setStatus(res.IntentID, IntentStatusSucceeded)
	env.store.failNext = errors.New("connection reset")

	_, err = env.payments.ConfirmPayment(ctx, res.IntentID)
	require.Error(t, err)
	assert.Equal(t, model.PaymentStatusPending, env.store.payments[res.IntentID].Status)
	assert.Zero(t, env.publisher.count())
}

func TestVerifyPaymentOwnership(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	env.store.addUser("u2")
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	env.processor.setStatus(res.IntentID, IntentStatusSucceeded)

	_, err = env.payments.VerifyPayment(ctx, "u2", res.IntentID, model.PaymentTarget{ProjectID: "p1"})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Zero(t, env.store.grants)

	out, err := env.payments.VerifyPayment(ctx, "u1", res.IntentID, model.PaymentTarget{ProjectID: "p1"})
	require.NoError(t, err)
	assert.True(t, out.Granted)
}

func TestVerifyPaymentWrongTargetChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	env.processor.setStatus(res.IntentID, IntentStatusSucceeded)

	for _, target := range []model.PaymentTarget{
		{ProjectID: "p2"},
		{ContentItemID: "v1"},
	} {
		_, err = env.payments.VerifyPayment(ctx, "u1", res.IntentID, target)
		assert.ErrorIs(t, err, model.ErrNotFound)
	}
	assert.Equal(t, model.PaymentStatusPending, env.store.payments[res.IntentID].Status)
	assert.Zero(t, env.store.grants)
	assert.Zero(t, env.publisher.count())

	out, err := env.payments.VerifyPayment(ctx, "u1", res.IntentID, model.PaymentTarget{ProjectID: "p1"})
	require.NoError(t, err)
	assert.True(t, out.Granted)
}

func TestFailedPaymentIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	env.processor.setStatus(res.IntentID, IntentStatusFailed)

	out, err := env.payments.ConfirmPayment(ctx, res.IntentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, out.Payment.Status)

	// A later success report cannot move it backwards or grant anything.
	payload := env.processor.succeed(res.IntentID, "evt_late")
	require.NoError(t, env.payments.HandleWebhook(ctx, payload, "valid"))
	assert.Equal(t, model.PaymentStatusFailed, env.store.payments[res.IntentID].Status)
	assert.Zero(t, env.store.grants)

	// Retrying creates a fresh intent; the failed row is kept.
	retry, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	assert.NotEqual(t, res.IntentID, retry.IntentID)
	assert.Len(t, env.store.payments, 2)
}

func TestWebhookReplayGrantsOnce(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	payload := env.processor.succeed(res.IntentID, "evt_1")

	require.NoError(t, env.payments.HandleWebhook(ctx, payload, "valid"))
	require.NoError(t, env.payments.HandleWebhook(ctx, payload, "valid"))

	assert.Equal(t, 1, env.store.grants)
	assert.Len(t, env.store.payments, 1)
	assert.Len(t, env.store.events, 1)
	assert.True(t, env.store.entitlements[key("u1", "p1")].HasAdditional3Videos)
	assert.Equal(t, 1, env.publisher.count())
}

func TestWebhookInvalidSignatureTouchesNothing(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	payload := env.processor.succeed(res.IntentID, "evt_1")

	err = env.payments.HandleWebhook(ctx, payload, "forged")
	assert.ErrorIs(t, err, model.ErrSignatureInvalid)
	assert.Equal(t, model.PaymentStatusPending, env.store.payments[res.IntentID].Status)
	assert.Empty(t, env.store.events)
}

func TestWebhookPaymentFailedCancelsIntent(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	payload := env.processor.register(&ProcessorEvent{ID: "evt_f", Type: "payment_intent.payment_failed", IntentID: res.IntentID, Status: IntentStatusFailed})

	require.NoError(t, env.payments.HandleWebhook(ctx, payload, "valid"))
	assert.Equal(t, model.PaymentStatusFailed, env.store.payments[res.IntentID].Status)
	assert.Equal(t, []string{res.IntentID}, env.processor.cancelled)
}

func TestWebhookSuccessAfterFailureIsFlagged(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	res, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	failed := env.processor.register(&ProcessorEvent{ID: "evt_f", Type: "payment_intent.payment_failed", IntentID: res.IntentID, Status: IntentStatusFailed})
	require.NoError(t, env.payments.HandleWebhook(ctx, failed, "valid"))

	require.NoError(t, env.payments.HandleWebhook(ctx, env.processor.succeed(res.IntentID, "evt_s"), "valid"))

	assert.Equal(t, model.PaymentStatusFailed, env.store.payments[res.IntentID].Status)
	assert.Zero(t, env.store.grants)
	logs := env.logs.String()
	assert.Contains(t, logs, `"level":"error"`)
	assert.Contains(t, logs, `"payment_id":"`+env.store.payments[res.IntentID].PaymentID+`"`)
	assert.Contains(t, logs, "refund or grant manually")
}

func TestWebhookUnknownIntentAndIgnoredEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	unknown := env.processor.register(&ProcessorEvent{ID: "evt_u", Type: "payment_intent.succeeded", IntentID: "pi_missing", Status: IntentStatusSucceeded})
	assert.NoError(t, env.payments.HandleWebhook(ctx, unknown, "valid"))

	other := env.processor.register(&ProcessorEvent{ID: "evt_o", Type: "customer.created"})
	assert.NoError(t, env.payments.HandleWebhook(ctx, other, "valid"))
	assert.NotContains(t, env.store.events, "evt_o")
}

func TestReconcileStale(t *testing.T) {
	env := newTestEnv(t)
	seedProject(env, 1, 0)
	ctx := context.Background()

	paid, err := env.payments.CreatePackagePaymentIntent(ctx, "u1", "p1", model.PackageAdditional3Videos, 0)
	require.NoError(t, err)
	abandoned, err := env.payments.CreateContentPaymentIntent(ctx, "u1", "v1")
	require.NoError(t, err)
	for _, p := range env.store.payments {
		p.CreatedAt = time.Now().Add(-time.Hour)
	}
	env.processor.setStatus(paid.IntentID, IntentStatusSucceeded)

	report, err := env.payments.ReconcileStale(ctx, 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Checked: 2, Succeeded: 1, Pending: 1}, report)
	assert.Equal(t, model.PaymentStatusPending, env.store.payments[abandoned.IntentID].Status)
	assert.Equal(t, 1, env.store.grants)
}
