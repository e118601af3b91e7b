package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tokenizer "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"subalign/internal/textutil"
)

// ONNXOptions locates a sentence-transformer export and its tokenizer.json.
type ONNXOptions struct {
	ModelPath     string
	TokenizerPath string
	LibraryPath   string
}

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initONNXEnvironment(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNX runs a local BERT-style encoder and mean-pools the last hidden state
// over the attention mask. Output vectors are unit length.
type ONNX struct {
	mu        sync.Mutex
	tokenizer *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
}

// NewONNX loads the tokenizer and model.
func NewONNX(opts ONNXOptions) (*ONNX, error) {
	if opts.ModelPath == "" || opts.TokenizerPath == "" {
		return nil, errors.New("onnx provider needs model and tokenizer paths")
	}
	tok, err := pretrained.FromFile(opts.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	if err := initONNXEnvironment(opts.LibraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer sessionOpts.Destroy()
	if err := sessionOpts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		opts.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		sessionOpts,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &ONNX{tokenizer: tok, session: session}, nil
}

func (o *ONNX) Name() string { return "onnx" }

func (o *ONNX) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputs := make([]tokenizer.EncodeInput, len(texts))
	for i, text := range texts {
		inputs[i] = tokenizer.NewSingleEncodeInput(tokenizer.NewInputSequence(text))
	}
	encodings, err := o.tokenizer.EncodeBatch(inputs, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	maxLen := 0
	for _, enc := range encodings {
		maxLen = max(maxLen, len(enc.GetIds()))
	}
	if maxLen == 0 {
		return nil, errors.New("tokenizer produced no tokens")
	}

	batch := len(encodings)
	inputIDs := make([]int64, batch*maxLen)
	attention := make([]int64, batch*maxLen)
	tokenTypes := make([]int64, batch*maxLen)
	for i, enc := range encodings {
		ids := enc.GetIds()
		mask := enc.GetAttentionMask()
		offset := i * maxLen
		for j := range ids {
			inputIDs[offset+j] = int64(ids[j])
			attention[offset+j] = int64(mask[j])
		}
	}

	shape := ort.NewShape(int64(batch), int64(maxLen))
	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, attention)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, tokenTypes)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := make([]ort.Value, 1)
	o.mu.Lock()
	err = o.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs)
	o.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	defer outputs[0].Destroy()

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("last_hidden_state is not a float32 tensor")
	}
	dims := hidden.GetShape()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output rank %d", len(dims))
	}
	return meanPool(hidden.GetData(), attention, batch, int(dims[1]), int(dims[2])), nil
}

// meanPool averages token states whose attention mask is set. The returned
// vectors are copies and stay valid after the output tensor is destroyed.
func meanPool(data []float32, mask []int64, batch, seqLen, hiddenDim int) []Vector {
	out := make([]Vector, batch)
	for b := 0; b < batch; b++ {
		vec := make(Vector, hiddenDim)
		var count float32
		for s := 0; s < seqLen; s++ {
			if mask[b*seqLen+s] == 0 {
				continue
			}
			count++
			row := data[(b*seqLen+s)*hiddenDim : (b*seqLen+s+1)*hiddenDim]
			for d, v := range row {
				vec[d] += v
			}
		}
		if count > 0 {
			for d := range vec {
				vec[d] /= count
			}
		}
		textutil.Normalize(vec)
		out[b] = vec
	}
	return out
}

// Close releases the session. The runtime environment stays initialized for
// the life of the process.
func (o *ONNX) Close() error {
	if o.session != nil {
		return o.session.Destroy()
	}
	return nil
}
