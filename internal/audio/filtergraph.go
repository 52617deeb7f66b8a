package audio

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	ffmpeg "github.com/csnewman/ffmpeg-go"
)

// sinkFormat pins every graph's output to the working format so that
// frame-to-sample conversion always sees mono float at the working rate.
var sinkFormat = fmt.Sprintf("aformat=sample_rates=%d:channel_layouts=mono:sample_fmts=flt", WorkingRate)

// FilterFile decodes a media file's audio, runs it through the given FFmpeg
// filter spec and returns the result as a working-format buffer. An empty
// spec just decodes and resamples. The graph output is always forced to
// mono float at WorkingRate regardless of what the spec produces.
func FilterFile(path, filterSpec string) (*Buffer, error) {
	reader, _, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	spec := sinkFormat
	if filterSpec != "" {
		spec = filterSpec + "," + sinkFormat
	}

	filterGraph, bufferSrcCtx, bufferSinkCtx, err := NewFilterGraph(reader.DecoderContext(), spec)
	if err != nil {
		return nil, err
	}
	defer ffmpeg.AVFilterGraphFree(&filterGraph)

	filteredFrame := ffmpeg.AVFrameAlloc()
	defer ffmpeg.AVFrameFree(&filteredFrame)

	out := &Buffer{SampleRate: WorkingRate}

	drainSink := func() error {
		for {
			if _, err := ffmpeg.AVBuffersinkGetFrame(bufferSinkCtx, filteredFrame); err != nil {
				if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
					return nil
				}
				return fmt.Errorf("failed to get filtered frame: %w", err)
			}
			if err := appendFrameSamples(out, filteredFrame); err != nil {
				ffmpeg.AVFrameUnref(filteredFrame)
				return err
			}
			ffmpeg.AVFrameUnref(filteredFrame)
		}
	}

	for {
		frame, err := reader.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}
		if frame == nil {
			break // EOF
		}

		if _, err := ffmpeg.AVBuffersrcAddFrameFlags(bufferSrcCtx, frame, 0); err != nil {
			return nil, fmt.Errorf("failed to add frame to filter: %w", err)
		}
		if err := drainSink(); err != nil {
			return nil, err
		}
	}

	// Flush the filter graph
	if _, err := ffmpeg.AVBuffersrcAddFrameFlags(bufferSrcCtx, nil, 0); err != nil {
		return nil, fmt.Errorf("failed to flush filter: %w", err)
	}
	if err := drainSink(); err != nil {
		return nil, err
	}

	return out, nil
}

// Filter runs an in-memory buffer through an FFmpeg filter spec.
// The buffer is spooled to a temporary WAV file first because the graph
// input is a decoder, not raw memory.
func Filter(buf *Buffer, filterSpec string) (*Buffer, error) {
	tmp, err := os.CreateTemp("", "revoice-filter-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := writeWAV(tmp, buf); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	return FilterFile(tmpPath, filterSpec)
}

// appendFrameSamples converts an AVFrame's samples to float64 and appends
// them to the buffer. Planar and packed variants of the common formats are
// handled; multi-channel frames are interleave-averaged into mono by the
// graph before they reach here, so only the first plane is read.
func appendFrameSamples(out *Buffer, frame *ffmpeg.AVFrame) error {
	nbSamples := frame.NbSamples()
	if nbSamples == 0 {
		return nil
	}

	dataPtr := frame.Data().Get(0)
	if dataPtr == nil {
		return fmt.Errorf("frame has no data plane")
	}

	switch ffmpeg.AVSampleFormat(frame.Format()) {
	case ffmpeg.AVSampleFmtFlt, ffmpeg.AVSampleFmtFltp:
		samples := unsafe.Slice((*float32)(dataPtr), int(nbSamples))
		for _, s := range samples {
			out.Samples = append(out.Samples, float64(s))
		}

	case ffmpeg.AVSampleFmtDbl, ffmpeg.AVSampleFmtDblp:
		samples := unsafe.Slice((*float64)(dataPtr), int(nbSamples))
		out.Samples = append(out.Samples, samples...)

	case ffmpeg.AVSampleFmtS16, ffmpeg.AVSampleFmtS16P:
		samples := unsafe.Slice((*int16)(dataPtr), int(nbSamples))
		for _, s := range samples {
			out.Samples = append(out.Samples, float64(s)/32768.0)
		}

	case ffmpeg.AVSampleFmtS32, ffmpeg.AVSampleFmtS32P:
		samples := unsafe.Slice((*int32)(dataPtr), int(nbSamples))
		for _, s := range samples {
			out.Samples = append(out.Samples, float64(s)/2147483648.0)
		}

	default:
		return fmt.Errorf("unsupported sample format %d", frame.Format())
	}

	return nil
}

// NewFilterGraph creates and configures an FFmpeg filter graph with the
// given filter specification: graph allocation, buffer source/sink creation,
// parsing, and configuration. The caller frees the graph with
// AVFilterGraphFree.
func NewFilterGraph(decCtx *ffmpeg.AVCodecContext, filterSpec string) (
	*ffmpeg.AVFilterGraph,
	*ffmpeg.AVFilterContext,
	*ffmpeg.AVFilterContext,
	error,
) {
	filterGraph := ffmpeg.AVFilterGraphAlloc()
	if filterGraph == nil {
		return nil, nil, nil, fmt.Errorf("failed to allocate filter graph")
	}

	bufferSrcCtx, err := createBufferSource(filterGraph, decCtx)
	if err != nil {
		ffmpeg.AVFilterGraphFree(&filterGraph)
		return nil, nil, nil, err
	}

	bufferSinkCtx, err := createBufferSink(filterGraph)
	if err != nil {
		ffmpeg.AVFilterGraphFree(&filterGraph)
		return nil, nil, nil, err
	}

	outputs := ffmpeg.AVFilterInoutAlloc()
	inputs := ffmpeg.AVFilterInoutAlloc()
	defer ffmpeg.AVFilterInoutFree(&outputs)
	defer ffmpeg.AVFilterInoutFree(&inputs)

	outputs.SetName(ffmpeg.ToCStr("in"))
	outputs.SetFilterCtx(bufferSrcCtx)
	outputs.SetPadIdx(0)
	outputs.SetNext(nil)

	inputs.SetName(ffmpeg.ToCStr("out"))
	inputs.SetFilterCtx(bufferSinkCtx)
	inputs.SetPadIdx(0)
	inputs.SetNext(nil)

	filterSpecC := ffmpeg.ToCStr(filterSpec)
	defer filterSpecC.Free()

	if _, err := ffmpeg.AVFilterGraphParsePtr(filterGraph, filterSpecC, &inputs, &outputs, nil); err != nil {
		ffmpeg.AVFilterGraphFree(&filterGraph)
		return nil, nil, nil, fmt.Errorf("failed to parse filter graph: %w", err)
	}

	if _, err := ffmpeg.AVFilterGraphConfig(filterGraph, nil); err != nil {
		ffmpeg.AVFilterGraphFree(&filterGraph)
		return nil, nil, nil, fmt.Errorf("failed to configure filter graph: %w", err)
	}

	return filterGraph, bufferSrcCtx, bufferSinkCtx, nil
}

// createBufferSource creates and configures the abuffer source filter
func createBufferSource(filterGraph *ffmpeg.AVFilterGraph, decCtx *ffmpeg.AVCodecContext) (*ffmpeg.AVFilterContext, error) {
	bufferSrc := ffmpeg.AVFilterGetByName(ffmpeg.GlobalCStr("abuffer"))
	if bufferSrc == nil {
		return nil, fmt.Errorf("abuffer filter not found")
	}

	layoutPtr := ffmpeg.AllocCStr(64)
	defer layoutPtr.Free()

	if _, err := ffmpeg.AVChannelLayoutDescribe(decCtx.ChLayout(), layoutPtr, 64); err != nil {
		return nil, fmt.Errorf("failed to get channel layout: %w", err)
	}

	pktTimebase := decCtx.PktTimebase()
	args := fmt.Sprintf(
		"time_base=%d/%d:sample_rate=%d:sample_fmt=%s:channel_layout=%s",
		pktTimebase.Num(), pktTimebase.Den(),
		decCtx.SampleRate(),
		ffmpeg.AVGetSampleFmtName(decCtx.SampleFmt()).String(),
		layoutPtr.String(),
	)

	argsC := ffmpeg.ToCStr(args)
	defer argsC.Free()

	var bufferSrcCtx *ffmpeg.AVFilterContext
	if _, err := ffmpeg.AVFilterGraphCreateFilter(
		&bufferSrcCtx,
		bufferSrc,
		ffmpeg.GlobalCStr("in"),
		argsC,
		nil,
		filterGraph,
	); err != nil {
		return nil, fmt.Errorf("failed to create abuffer: %w", err)
	}

	return bufferSrcCtx, nil
}

// createBufferSink creates and configures the abuffersink filter
func createBufferSink(filterGraph *ffmpeg.AVFilterGraph) (*ffmpeg.AVFilterContext, error) {
	bufferSink := ffmpeg.AVFilterGetByName(ffmpeg.GlobalCStr("abuffersink"))
	if bufferSink == nil {
		return nil, fmt.Errorf("abuffersink filter not found")
	}

	var bufferSinkCtx *ffmpeg.AVFilterContext
	if _, err := ffmpeg.AVFilterGraphCreateFilter(
		&bufferSinkCtx,
		bufferSink,
		ffmpeg.GlobalCStr("out"),
		nil,
		nil,
		filterGraph,
	); err != nil {
		return nil, fmt.Errorf("failed to create abuffersink: %w", err)
	}

	return bufferSinkCtx, nil
}
