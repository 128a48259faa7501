package openai

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/vtcode-go/vtcode/internal/errkind"
	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/provider"
)

// streamer adapts the SDK's chat-completion-chunk SSE stream to
// provider.Streamer, buffering tool-call argument fragments per index
// the same way compat.stream does, since the wire shape is identical
// (both speak the chat/completions delta protocol).
type streamer struct {
	ctx    context.Context
	cancel context.CancelFunc
	sdk    *ssestream.Stream[openai.ChatCompletionChunk]

	chunks chan provider.Chunk

	errMu    sync.Mutex
	finalErr error
	errSet   bool

	toolBuilders map[int64]*toolCallBuilder
}

type toolCallBuilder struct {
	id   string
	name string
	args []byte
}

func newStreamer(ctx context.Context, sdkStream *ssestream.Stream[openai.ChatCompletionChunk]) *streamer {
	cctx, cancel := context.WithCancel(ctx)
	s := &streamer{
		ctx:          cctx,
		cancel:       cancel,
		sdk:          sdkStream,
		chunks:       make(chan provider.Chunk, 32),
		toolBuilders: make(map[int64]*toolCallBuilder),
	}
	go s.run()
	return s
}

func (s *streamer) Recv(ctx context.Context) (provider.Chunk, error) {
	select {
	case chunk, ok := <-s.chunks:
		if ok {
			return chunk, nil
		}
		if err := s.err(); err != nil {
			return provider.Chunk{}, err
		}
		return provider.Chunk{}, io.EOF
	case <-ctx.Done():
		return provider.Chunk{}, ctx.Err()
	case <-s.ctx.Done():
		return provider.Chunk{}, s.ctx.Err()
	}
}

func (s *streamer) Close() error {
	s.cancel()
	if s.sdk == nil {
		return nil
	}
	return s.sdk.Close()
}

func (s *streamer) run() {
	defer close(s.chunks)
	defer func() {
		if s.sdk != nil {
			_ = s.sdk.Close()
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			s.setErr(s.ctx.Err())
			return
		default:
		}
		if !s.sdk.Next() {
			if err := s.sdk.Err(); err != nil {
				s.setErr(classifySDKError(err))
			}
			return
		}
		chunk := s.sdk.Current()
		if err := s.handle(chunk); err != nil {
			s.setErr(err)
			return
		}
	}
}

func (s *streamer) handle(chunk openai.ChatCompletionChunk) error {
	if len(chunk.Choices) == 0 {
		if chunk.Usage.TotalTokens > 0 {
			usage := provider.Usage{
				PromptTokens:     int(chunk.Usage.PromptTokens),
				CompletionTokens: int(chunk.Usage.CompletionTokens),
				TotalTokens:      int(chunk.Usage.TotalTokens),
			}
			return s.emit(provider.Chunk{Type: provider.ChunkUsage, Usage: &usage})
		}
		return nil
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	if delta.Content != "" {
		if err := s.emit(provider.Chunk{Type: provider.ChunkText, Text: delta.Content}); err != nil {
			return err
		}
	}

	for _, tc := range delta.ToolCalls {
		b := s.toolBuilders[tc.Index]
		if b == nil {
			b = &toolCallBuilder{}
			s.toolBuilders[tc.Index] = b
		}
		if tc.ID != "" {
			b.id = tc.ID
		}
		if tc.Function.Name != "" {
			b.name = tc.Function.Name
		}
		if tc.Function.Arguments != "" {
			b.args = append(b.args, tc.Function.Arguments...)
			if err := s.emit(provider.Chunk{Type: provider.ChunkToolCallDelta, ArgsDelta: tc.Function.Arguments, ToolCallID: b.id, ToolCallName: b.name}); err != nil {
				return err
			}
		}
	}

	if choice.FinishReason != "" {
		if choice.FinishReason == "tool_calls" {
			for _, b := range s.toolBuilders {
				if b.name == "" {
					continue
				}
				var args map[string]any
				_ = json.Unmarshal(b.args, &args)
				if err := s.emit(provider.Chunk{
					Type: provider.ChunkToolCall,
					ToolCall: &model.ToolCall{
						ID:        b.id,
						Name:      b.name,
						Arguments: args,
					},
				}); err != nil {
					return err
				}
			}
			s.toolBuilders = make(map[int64]*toolCallBuilder)
		}
		return s.emit(provider.Chunk{Type: provider.ChunkStop, FinishReason: translateFinishReason(string(choice.FinishReason))})
	}
	return nil
}

func (s *streamer) emit(chunk provider.Chunk) error {
	select {
	case s.chunks <- chunk:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *streamer) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.errSet {
		return
	}
	s.errSet = true
	if err != nil {
		s.finalErr = errkind.Wrap(errkind.Network, err, "openai stream")
	}
}

func (s *streamer) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.finalErr
}
