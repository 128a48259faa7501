package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/vtcode-go/vtcode/internal/errkind"
	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/provider"
)

// streamer adapts an Anthropic Messages streaming connection to
// provider.Streamer. Grounded on goadesign-goa-ai
// features/model/anthropic/stream.go's anthropicStreamer/anthropicChunkProcessor
// split; collapsed into one type since this adapter doesn't need the
// Metadata() accessor goa-ai's model.Streamer carries.
type streamer struct {
	ctx    context.Context
	cancel context.CancelFunc
	sdk    *ssestream.Stream[sdk.MessageStreamEventUnion]

	chunks chan provider.Chunk

	errMu    sync.Mutex
	errSet   bool
	finalErr error

	toolNameMap map[string]string
	toolBlocks  map[int]*toolBuffer
	stopReason  string
}

type toolBuffer struct {
	name      string
	id        string
	fragments []string
}

func (tb *toolBuffer) finalInput() []byte {
	joined := strings.Join(tb.fragments, "")
	if strings.TrimSpace(joined) == "" {
		return []byte("{}")
	}
	return []byte(joined)
}

func newStreamer(ctx context.Context, sdkStream *ssestream.Stream[sdk.MessageStreamEventUnion], nameMap map[string]string) *streamer {
	cctx, cancel := context.WithCancel(ctx)
	s := &streamer{
		ctx:         cctx,
		cancel:      cancel,
		sdk:         sdkStream,
		chunks:      make(chan provider.Chunk, 32),
		toolNameMap: nameMap,
		toolBlocks:  make(map[int]*toolBuffer),
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
		if err := s.handle(s.sdk.Current()); err != nil {
			s.setErr(err)
			return
		}
	}
}

func (s *streamer) handle(event sdk.MessageStreamEventUnion) error {
	switch ev := event.AsAny().(type) {
	case sdk.MessageStartEvent:
		s.toolBlocks = make(map[int]*toolBuffer)
		s.stopReason = ""
		return nil
	case sdk.ContentBlockStartEvent:
		if toolUse, ok := ev.ContentBlock.AsAny().(sdk.ToolUseBlock); ok {
			canonical := toolUse.Name
			if mapped, ok := s.toolNameMap[toolUse.Name]; ok {
				canonical = mapped
			}
			s.toolBlocks[int(ev.Index)] = &toolBuffer{name: canonical, id: toolUse.ID}
		}
		return nil
	case sdk.ContentBlockDeltaEvent:
		switch delta := ev.Delta.AsAny().(type) {
		case sdk.TextDelta:
			if delta.Text == "" {
				return nil
			}
			return s.emit(provider.Chunk{Type: provider.ChunkText, Text: delta.Text})
		case sdk.InputJSONDelta:
			if delta.PartialJSON == "" {
				return nil
			}
			if tb := s.toolBlocks[int(ev.Index)]; tb != nil {
				tb.fragments = append(tb.fragments, delta.PartialJSON)
				return s.emit(provider.Chunk{
					Type:         provider.ChunkToolCallDelta,
					ToolCallID:   tb.id,
					ToolCallName: tb.name,
					ArgsDelta:    delta.PartialJSON,
				})
			}
			return nil
		case sdk.ThinkingDelta:
			if delta.Thinking == "" {
				return nil
			}
			return s.emit(provider.Chunk{Type: provider.ChunkThinking, Thinking: delta.Thinking})
		default:
			return nil
		}
	case sdk.ContentBlockStopEvent:
		if tb := s.toolBlocks[int(ev.Index)]; tb != nil {
			delete(s.toolBlocks, int(ev.Index))
			var args map[string]any
			_ = json.Unmarshal(tb.finalInput(), &args)
			return s.emit(provider.Chunk{
				Type: provider.ChunkToolCall,
				ToolCall: &model.ToolCall{
					ID:        tb.id,
					Name:      tb.name,
					Arguments: args,
				},
			})
		}
		return nil
	case sdk.MessageDeltaEvent:
		s.stopReason = string(ev.Delta.StopReason)
		usage := provider.Usage{
			PromptTokens:        int(ev.Usage.InputTokens),
			CompletionTokens:    int(ev.Usage.OutputTokens),
			TotalTokens:         int(ev.Usage.InputTokens + ev.Usage.OutputTokens),
			CacheReadTokens:     int(ev.Usage.CacheReadInputTokens),
			CacheCreationTokens: int(ev.Usage.CacheCreationInputTokens),
		}
		return s.emit(provider.Chunk{Type: provider.ChunkUsage, Usage: &usage})
	case sdk.MessageStopEvent:
		s.toolBlocks = make(map[int]*toolBuffer)
		return s.emit(provider.Chunk{Type: provider.ChunkStop, FinishReason: translateFinishReason(s.stopReason)})
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
		s.finalErr = errkind.Wrap(errkind.Network, err, "anthropic stream")
	}
}

func (s *streamer) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.finalErr
}
