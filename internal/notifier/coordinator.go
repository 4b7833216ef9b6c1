package notifier

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/common/metrics"
	"portal-notifier/internal/common/observability"
	"portal-notifier/internal/models"
)

// Renderer produces the text of a request. *TemplateResolver implements it.
type Renderer interface {
	Render(kind models.NotificationKind, payload map[string]interface{}, locale, title, message string) Rendered
}

// Coordinator fans a request out to recipients × channels, runs every task
// concurrently and returns one outcome per task. It never retries and never
// returns an error; failures are reported in the outcome set.
type Coordinator struct {
	renderer       Renderer
	deliverer      Deliverer
	log            logger.Logger
	obs            *observability.Observability
	maxConcurrency int
	now            func() time.Time
	newID          func() string
}

type Option func(*Coordinator)

// WithMaxConcurrency bounds the goroutines of a single batch. 0 means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(c *Coordinator) { c.maxConcurrency = n }
}

func WithObservability(obs *observability.Observability) Option {
	return func(c *Coordinator) { c.obs = obs }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) { c.newID = newID }
}

func NewCoordinator(renderer Renderer, deliverer Deliverer, log logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		renderer:  renderer,
		deliverer: deliverer,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify delivers req to req.RecipientID.
func (c *Coordinator) Notify(ctx context.Context, req models.NotificationRequest) models.Outcomes {
	return c.run(ctx, "notify", c.expand(req, []int64{req.RecipientID}))
}

// NotifyBulk broadcasts one request to every recipient. Text is rendered
// once. Duplicate recipient IDs are not collapsed; each occurrence gets its
// own tasks.
func (c *Coordinator) NotifyBulk(ctx context.Context, req models.NotificationRequest, recipientIDs []int64) models.Outcomes {
	return c.run(ctx, "notify_bulk", c.expand(req, recipientIDs))
}

// NotifyMany delivers a batch of independent single-recipient requests in
// one join.
func (c *Coordinator) NotifyMany(ctx context.Context, reqs []models.NotificationRequest) models.Outcomes {
	var tasks []Task
	for _, req := range reqs {
		tasks = append(tasks, c.expand(req, []int64{req.RecipientID})...)
	}
	return c.run(ctx, "notify_many", tasks)
}

// NotifyAsync starts a bulk delivery detached from ctx cancellation. The
// outcome set is always logged and is sent once on the returned channel,
// which is then closed. Callers may ignore the channel.
func (c *Coordinator) NotifyAsync(ctx context.Context, req models.NotificationRequest, recipientIDs []int64) <-chan models.Outcomes {
	done := make(chan models.Outcomes, 1)
	ctx = context.WithoutCancel(ctx)
	tasks := c.expand(req, recipientIDs)

	go func() {
		defer close(done)
		outcomes := c.run(ctx, "notify_async", tasks)
		c.log.Info("async notification batch finished", map[string]interface{}{
			"notificationId": firstID(tasks),
			"tasks":          len(outcomes),
			"delivered":      outcomes.Count(models.StatusDelivered),
			"failed":         outcomes.Count(models.StatusFailed),
			"notConfigured":  outcomes.Count(models.StatusNotConfigured),
		})
		done <- outcomes
	}()

	return done
}

// expand renders req once and builds the recipients × channels cross product.
func (c *Coordinator) expand(req models.NotificationRequest, recipientIDs []int64) []Task {
	if len(recipientIDs) == 0 {
		return nil
	}
	channels := models.ExpandChannels(req.Channels...)
	if len(channels) == 0 {
		return nil
	}

	if req.ID == "" {
		req.ID = c.newID()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = c.now()
	}
	if req.Kind == "" {
		req.Kind = models.KindSystem
	}

	text := c.renderer.Render(req.Kind, req.Payload, req.Locale, req.Title, req.Message)

	tasks := make([]Task, 0, len(recipientIDs)*len(channels))
	for _, id := range recipientIDs {
		for _, ch := range channels {
			tasks = append(tasks, Task{
				NotificationID: req.ID,
				RecipientID:    id,
				Channel:        ch,
				Kind:           req.Kind,
				Priority:       req.Priority,
				Text:           text,
				Payload:        maps.Clone(req.Payload),
				CreatedAt:      req.CreatedAt,
			})
		}
	}
	return tasks
}

func (c *Coordinator) run(ctx context.Context, operation string, tasks []Task) models.Outcomes {
	if len(tasks) == 0 {
		return models.Outcomes{}
	}

	ctx, span := observability.StartSpan(ctx, "notifier."+operation,
		attribute.String("notification.id", firstID(tasks)),
		attribute.Int("notification.tasks", len(tasks)),
	)
	defer span.End()

	start := c.now()
	metrics.NotificationBatchSize.WithLabelValues(operation).Observe(float64(len(tasks)))

	p := pool.NewWithResults[models.DeliveryOutcome]()
	if c.maxConcurrency > 0 {
		p = p.WithMaxGoroutines(c.maxConcurrency)
	}

	for _, task := range tasks {
		p.Go(func() models.DeliveryOutcome {
			metrics.NotificationDeliveriesInFlight.Inc()
			defer metrics.NotificationDeliveriesInFlight.Dec()

			out := c.deliverer.Deliver(ctx, task)
			metrics.ObserveDelivery(string(out.Channel), string(out.Kind), string(out.Status), out.Duration)
			return out
		})
	}

	outcomes := models.Outcomes(p.Wait())

	statuses := map[string]int{}
	for _, o := range outcomes {
		statuses[string(o.Status)]++
		if o.Status == models.StatusFailed {
			c.log.Error("notification delivery failed", map[string]interface{}{
				"notificationId": o.NotificationID,
				"recipientId":    o.RecipientID,
				"channel":        string(o.Channel),
				"kind":           string(o.Kind),
				"cause":          string(o.Cause),
				"error":          o.Err,
			})
		}
	}

	c.obs.RecordBatch(ctx, operation, len(tasks), statuses, c.now().Sub(start))

	if n := statuses[string(models.StatusFailed)]; n > 0 {
		span.SetStatus(codes.Error, "partial delivery failure")
		span.SetAttributes(attribute.Int("notification.failed", n))
	}

	return outcomes
}

func firstID(tasks []Task) string {
	if len(tasks) == 0 {
		return ""
	}
	return tasks[0].NotificationID
}
