package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/email"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/storage"
	"github.com/DFBlok/market-link-app/internal/utils"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
)

// Queue names and their priorities on the worker.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueImages   = "images"
)

// TaskClient is the part of *asynq.Client the services use, so tests can mock it.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TemplateProvider looks up email templates.
type TemplateProvider interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

// ProductImageSetter records the processed image on its product.
type ProductImageSetter interface {
	SetProductImage(ctx context.Context, productID, supplierID utils.SixID, key string) error
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// --- Task Client (Enqueuing tasks) ---

func NewClient(cfg *config.Config) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

// EmailTaskPayload is the payload of TypeEmailDelivery.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// NewEmailDeliveryTask builds an email task.
func NewEmailDeliveryTask(p EmailTaskPayload) (*asynq.Task, error) {
	if strings.TrimSpace(p.To) == "" || p.TemplateID == "" {
		return nil, errors.New("email task needs a recipient and a template")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal email task payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(5), asynq.Timeout(time.Minute)), nil
}

// ImageTaskPayload is the payload of TypeImageProcess.
type ImageTaskPayload struct {
	S3Key      string `json:"s3_key"`
	ProductID  string `json:"product_id"`
	SupplierID string `json:"supplier_id"`
}

// NewImageProcessTask builds an image normalization task on the images queue.
func NewImageProcessTask(p ImageTaskPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal image task payload: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, payload, asynq.Queue(QueueImages), asynq.MaxRetry(3), asynq.Timeout(2*time.Minute)), nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	templates   TemplateProvider
	storage     storage.IS3Storage
	products    ProductImageSetter
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	templates TemplateProvider,
	storageService storage.IS3Storage,
	products ProductImageSetter,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		templates:   templates,
		storage:     storageService,
		products:    products,
	}
}

// SetupServer configures an Asynq server and its mux. It returns nil when
// neither worker role is enabled. The caller starts and shuts it down.
func SetupServer(cfg *config.Config, processor *TaskProcessor, isImageWorker bool, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker && !isImageWorker {
		return nil, nil
	}
	log := logger.GetLogger()

	queues := map[string]int{}
	mux := asynq.NewServeMux()
	if isBgWorker {
		queues[QueueCritical] = 6
		queues[QueueDefault] = 3
		mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
		log.Info("Registered background task handlers", zap.String("task", TypeEmailDelivery))
	}
	if isImageWorker {
		queues[QueueImages] = 5
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Info("Registered image processing task handlers", zap.String("task", TypeImageProcess))
	}

	srv := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Queues: queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				log.Error("Task failed",
					zap.String("type", task.Type()),
					zap.Int("retried", retried),
					zap.Error(err),
				)
			}),
			Logger: log.Sugar(),
		},
	)
	return srv, mux
}

// --- Task Handlers ---

// HandleEmailDeliveryTask renders the template named in the payload and sends it.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	log := logger.FromContext(ctx).With(zap.String("template", payload.TemplateID))

	locale := payload.Locale
	if locale == "" {
		locale = models.DefaultLocale
	}

	tmpl, err := p.templates.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		log.Error("Email template lookup failed", zap.String("locale", locale), zap.Error(err))
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	data := map[string]interface{}{"appName": p.cfg.AppName}
	for k, v := range payload.Data {
		data[k] = v
	}
	subject, body, err := email.RenderTemplate(tmpl, data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@example.com"
	}
	raw := email.BuildMessage(email.Message{
		From:       fromAddress,
		To:         payload.To,
		Subject:    subject,
		Body:       body,
		TemplateID: payload.TemplateID,
	}, time.Now())

	if err := p.emailSender.Send(ctx, []string{payload.To}, subject, raw); err != nil {
		log.Warn("Email sending failed, will retry", zap.Error(err))
		return err
	}

	log.Info("Email task processed", zap.String("to", payload.To))
	return nil
}

// HandleImageProcessTask downloads an uploaded product image, shrinks it to the
// configured bounds and records its key on the product.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	productID, err := utils.ParseSixID(payload.ProductID)
	if err != nil {
		return fmt.Errorf("invalid product ID in payload: %w", asynq.SkipRetry)
	}
	supplierID, err := utils.ParseSixID(payload.SupplierID)
	if err != nil {
		return fmt.Errorf("invalid supplier ID in payload: %w", asynq.SkipRetry)
	}
	log := logger.FromContext(ctx).With(zap.String("key", payload.S3Key), zap.String("product_id", payload.ProductID))

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	imgData, contentType, err := p.storage.GetObject(ctx, payload.S3Key, maxSizeBytes)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrObjectTooLarge) {
			log.Warn("Image cannot be processed", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	processed, newType, changed, err := NormalizeImage(imgData, uint(p.cfg.ImageMaxDimension))
	if err != nil {
		log.Warn("Unsupported or corrupt image", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if changed {
		if int64(len(processed)) > maxSizeBytes {
			return fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
		}
		if err := p.storage.PutObject(ctx, payload.S3Key, processed, newType); err != nil {
			return err
		}
		log.Info("Image resized", zap.String("content_type", newType))
	} else {
		log.Debug("Image within bounds", zap.String("content_type", contentType))
	}

	if err := p.products.SetProductImage(ctx, productID, supplierID, payload.S3Key); err != nil {
		// The product may have been deleted since the upload.
		return fmt.Errorf("failed to update product with processed image: %w", err)
	}
	log.Info("Image task processed")
	return nil
}

// NormalizeImage decodes data and, when either side exceeds maxDim, shrinks it
// to fit and re-encodes it as JPEG. changed is false when data is already within bounds.
func NormalizeImage(data []byte, maxDim uint) (out []byte, contentType string, changed bool, err error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", false, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if maxDim == 0 || (uint(b.Dx()) <= maxDim && uint(b.Dy()) <= maxDim) {
		return data, "image/" + format, false, nil
	}

	resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, "", false, fmt.Errorf("encode resized image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", true, nil
}
