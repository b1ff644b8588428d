package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/anforahq/anfora/internal/config"
	anforaErrors "github.com/anforahq/anfora/internal/errors"
)

// Result is one classification outcome. AllScores holds the softmax
// probability per label and sums to 1.
type Result struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	AllScores  map[string]float64 `json:"all_scores"`
}

// Classifier runs a fine-tuned BERT model exported to ONNX. The model and
// tokenizer load lazily on first use so the server starts even when the
// model directory is absent; only classify calls fail in that case.
type Classifier struct {
	cfg config.ClassifierConfig

	once    sync.Once
	loadErr error

	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
	labels  []string
}

func New(cfg config.ClassifierConfig) *Classifier {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 256
	}
	return &Classifier{cfg: cfg}
}

func (c *Classifier) load() error {
	c.once.Do(func() {
		c.loadErr = c.doLoad()
	})
	return c.loadErr
}

func (c *Classifier) doLoad() error {
	labels, err := loadLabels(filepath.Join(c.cfg.ModelPath, "config.json"))
	if err != nil {
		return fmt.Errorf("%w: %v", anforaErrors.ErrClassification, err)
	}
	c.labels = labels

	tk, err := pretrained.FromFile(filepath.Join(c.cfg.ModelPath, "tokenizer.json"))
	if err != nil {
		return fmt.Errorf("%w: load tokenizer: %v", anforaErrors.ErrClassification, err)
	}
	c.tk = tk

	if c.cfg.Library != "" {
		ort.SetSharedLibraryPath(c.cfg.Library)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("%w: initialize onnxruntime: %v", anforaErrors.ErrClassification, err)
		}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("%w: session options: %v", anforaErrors.ErrClassification, err)
	}
	defer options.Destroy()
	appendAccelerator(options)

	session, err := ort.NewDynamicAdvancedSession(
		filepath.Join(c.cfg.ModelPath, "model.onnx"),
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		options,
	)
	if err != nil {
		return fmt.Errorf("%w: load model: %v", anforaErrors.ErrClassification, err)
	}
	c.session = session
	return nil
}

// appendAccelerator tries CUDA, then CoreML, and settles for CPU when
// neither provider is available on this host.
func appendAccelerator(options *ort.SessionOptions) {
	if cudaOpts, err := ort.NewCUDAProviderOptions(); err == nil {
		defer cudaOpts.Destroy()
		if err := options.AppendExecutionProviderCUDA(cudaOpts); err == nil {
			return
		}
	}
	_ = options.AppendExecutionProviderCoreML(0)
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model config: %w", err)
	}

	var cfg struct {
		ID2Label map[string]string `json:"id2label"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse model config: %w", err)
	}
	if len(cfg.ID2Label) == 0 {
		return nil, fmt.Errorf("model config has no id2label mapping")
	}

	ids := make([]int, 0, len(cfg.ID2Label))
	byID := make(map[int]string, len(cfg.ID2Label))
	for key, label := range cfg.ID2Label {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("non-numeric label id %q", key)
		}
		ids = append(ids, id)
		byID[id] = label
	}
	sort.Ints(ids)

	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		labels = append(labels, byID[id])
	}
	return labels, nil
}

// Classify tokenizes text, runs the model, and returns the winning label
// with its probability.
func (c *Classifier) Classify(text string) (*Result, error) {
	if err := c.load(); err != nil {
		return nil, err
	}

	encoding, err := c.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("%w: tokenize: %v", anforaErrors.ErrClassification, err)
	}

	ids, mask, typeIDs := padTruncate(encoding.Ids, encoding.AttentionMask, encoding.TypeIds, c.cfg.MaxLength)

	shape := ort.NewShape(1, int64(len(ids)))
	inputIDs, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: build input tensor: %v", anforaErrors.ErrClassification, err)
	}
	defer inputIDs.Destroy()

	attentionMask, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("%w: build input tensor: %v", anforaErrors.ErrClassification, err)
	}
	defer attentionMask.Destroy()

	tokenTypes, err := ort.NewTensor(shape, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: build input tensor: %v", anforaErrors.ErrClassification, err)
	}
	defer tokenTypes.Destroy()

	outputs := []ort.Value{nil}
	if err := c.session.Run([]ort.Value{inputIDs, attentionMask, tokenTypes}, outputs); err != nil {
		return nil, fmt.Errorf("%w: run model: %v", anforaErrors.ErrClassification, err)
	}
	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: unexpected model output type", anforaErrors.ErrClassification)
	}
	defer logitsTensor.Destroy()

	return decode(logitsTensor.GetData(), c.labels)
}

// Close releases the ONNX session if it was ever loaded.
func (c *Classifier) Close() {
	if c.session != nil {
		c.session.Destroy()
	}
}

func padTruncate(ids []int, mask []int, typeIDs []int, maxLength int) ([]int64, []int64, []int64) {
	outIDs := make([]int64, maxLength)
	outMask := make([]int64, maxLength)
	outTypes := make([]int64, maxLength)
	for i := 0; i < maxLength && i < len(ids); i++ {
		outIDs[i] = int64(ids[i])
		if i < len(mask) {
			outMask[i] = int64(mask[i])
		} else {
			outMask[i] = 1
		}
		if i < len(typeIDs) {
			outTypes[i] = int64(typeIDs[i])
		}
	}
	return outIDs, outMask, outTypes
}

func decode(logits []float32, labels []string) (*Result, error) {
	if len(labels) == 0 || len(logits) < len(labels) {
		return nil, fmt.Errorf("%w: model returned %d logits for %d labels", anforaErrors.ErrClassification, len(logits), len(labels))
	}

	probs := softmax(logits[:len(labels)])

	result := &Result{AllScores: make(map[string]float64, len(labels))}
	for i, label := range labels {
		result.AllScores[label] = probs[i]
		if probs[i] > result.Confidence {
			result.Confidence = probs[i]
			result.Label = label
		}
	}
	return result, nil
}

func softmax(logits []float32) []float64 {
	max := float64(logits[0])
	for _, l := range logits[1:] {
		if float64(l) > max {
			max = float64(l)
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
