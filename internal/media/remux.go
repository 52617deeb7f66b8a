package media

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	ffmpeg "github.com/csnewman/ffmpeg-go"

	"github.com/revoice-audio/revoice/internal/audio"
)

// Delivery audio format: AAC at 128 kbit/s, working rate, mono.
const (
	outputBitrate   = 128000
	aacFrameSamples = 1024
)

// Remux writes the processed audio back alongside the source's video
// stream. Video packets are stream-copied bit for bit; only the audio is
// encoded. Sources without video produce an audio-only output. tmpDir
// receives the intermediate WAV and must outlive the call.
func Remux(srcPath string, processed *audio.Buffer, outPath, tmpDir string) error {
	wavPath := filepath.Join(tmpDir, "processed.wav")
	if err := audio.WriteWAV(wavPath, processed); err != nil {
		return fmt.Errorf("%w: %v", ErrRemuxFailed, err)
	}

	if err := remux(srcPath, wavPath, outPath); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("%w: %v", ErrRemuxFailed, err)
	}
	return nil
}

func remux(srcPath, wavPath, outPath string) error {
	// Source container, for video packets
	var srcCtx *ffmpeg.AVFormatContext
	srcPathC := ffmpeg.ToCStr(srcPath)
	defer srcPathC.Free()

	if _, err := ffmpeg.AVFormatOpenInput(&srcCtx, srcPathC, nil, nil); err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer ffmpeg.AVFormatCloseInput(&srcCtx)

	if _, err := ffmpeg.AVFormatFindStreamInfo(srcCtx, nil); err != nil {
		return fmt.Errorf("failed to find stream info: %w", err)
	}

	videoIdx := -1
	var srcVideo *ffmpeg.AVStream
	streams := srcCtx.Streams()
	for i := 0; i < int(srcCtx.NbStreams()); i++ {
		stream := streams.Get(uintptr(i))
		if stream.Codecpar().CodecType() == ffmpeg.AVMediaTypeVideo {
			videoIdx = i
			srcVideo = stream
			break
		}
	}

	// Output container
	outPathC := ffmpeg.ToCStr(outPath)
	defer outPathC.Free()

	var outCtx *ffmpeg.AVFormatContext
	if _, err := ffmpeg.AVFormatAllocOutputContext2(&outCtx, nil, nil, outPathC); err != nil {
		return fmt.Errorf("failed to allocate output context: %w", err)
	}
	defer ffmpeg.AVFormatFreeContext(outCtx)

	// Video stream first so it keeps index 0, matching the source layout
	var outVideo *ffmpeg.AVStream
	if srcVideo != nil {
		outVideo = ffmpeg.AVFormatNewStream(outCtx, nil)
		if outVideo == nil {
			return fmt.Errorf("failed to create video stream")
		}
		if _, err := ffmpeg.AVCodecParametersCopy(outVideo.Codecpar(), srcVideo.Codecpar()); err != nil {
			return fmt.Errorf("failed to copy video parameters: %w", err)
		}
		outVideo.Codecpar().SetCodecTag(0)
		outVideo.SetTimeBase(srcVideo.TimeBase())
	}

	feeder, err := newAudioFeeder(outCtx, wavPath)
	if err != nil {
		return err
	}
	defer feeder.Close()

	// Open output file and write header
	if outCtx.Oformat().Flags()&ffmpeg.AVFmtNofile == 0 {
		var pb *ffmpeg.AVIOContext
		if _, err := ffmpeg.AVIOOpen(&pb, outPathC, ffmpeg.AVIOFlagWrite); err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		outCtx.SetPb(pb)
		defer func() {
			if outCtx.Pb() != nil {
				ffmpeg.AVIOClose(outCtx.Pb())
				outCtx.SetPb(nil)
			}
		}()
	}

	if _, err := ffmpeg.AVFormatWriteHeader(outCtx, nil); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Copy video packets, pumping audio alongside so the muxer can
	// interleave without unbounded buffering
	if srcVideo != nil {
		packet := ffmpeg.AVPacketAlloc()
		defer ffmpeg.AVPacketFree(&packet)

		for {
			if _, err := ffmpeg.AVReadFrame(srcCtx, packet); err != nil {
				if errors.Is(err, ffmpeg.AVErrorEOF) {
					break
				}
				return fmt.Errorf("failed to read source packet: %w", err)
			}
			if packet.StreamIndex() != videoIdx {
				ffmpeg.AVPacketUnref(packet)
				continue
			}

			if err := feeder.PumpUntil(packetSeconds(packet, srcVideo)); err != nil {
				ffmpeg.AVPacketUnref(packet)
				return err
			}

			ffmpeg.AVPacketRescaleTs(packet, srcVideo.TimeBase(), outVideo.TimeBase())
			packet.SetStreamIndex(outVideo.Index())
			if _, err := ffmpeg.AVInterleavedWriteFrame(outCtx, packet); err != nil {
				ffmpeg.AVPacketUnref(packet)
				return fmt.Errorf("failed to write video packet: %w", err)
			}
			ffmpeg.AVPacketUnref(packet)
		}
	}

	// Drain remaining audio
	if err := feeder.PumpUntil(math.Inf(1)); err != nil {
		return err
	}

	if _, err := ffmpeg.AVWriteTrailer(outCtx); err != nil {
		return fmt.Errorf("failed to write trailer: %w", err)
	}
	return nil
}

// packetSeconds converts a packet timestamp to seconds in its stream's
// time base.
func packetSeconds(packet *ffmpeg.AVPacket, stream *ffmpeg.AVStream) float64 {
	ts := packet.Pts()
	if ts == ffmpeg.AVNoptsValue {
		ts = packet.Dts()
	}
	if ts == ffmpeg.AVNoptsValue {
		return 0
	}
	tb := stream.TimeBase()
	return float64(ts) * float64(tb.Num()) / float64(tb.Den())
}

// audioFeeder decodes the processed WAV, reframes it for AAC through a
// filter graph and writes encoded packets into the shared output context.
type audioFeeder struct {
	reader  *audio.Reader
	graph   *ffmpeg.AVFilterGraph
	srcCtx  *ffmpeg.AVFilterContext
	sinkCtx *ffmpeg.AVFilterContext
	encCtx  *ffmpeg.AVCodecContext
	stream  *ffmpeg.AVStream
	outCtx  *ffmpeg.AVFormatContext
	frame   *ffmpeg.AVFrame
	packet  *ffmpeg.AVPacket

	written float64 // presentation time of the last written packet
	done    bool
}

func newAudioFeeder(outCtx *ffmpeg.AVFormatContext, wavPath string) (*audioFeeder, error) {
	reader, _, err := audio.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open processed audio: %w", err)
	}

	spec := fmt.Sprintf(
		"aformat=sample_rates=%d:channel_layouts=mono:sample_fmts=fltp,asetnsamples=n=%d",
		audio.WorkingRate, aacFrameSamples,
	)
	graph, srcCtx, sinkCtx, err := audio.NewFilterGraph(reader.DecoderContext(), spec)
	if err != nil {
		reader.Close()
		return nil, err
	}

	codec := ffmpeg.AVCodecFindEncoder(ffmpeg.AVCodecIdAac)
	if codec == nil {
		ffmpeg.AVFilterGraphFree(&graph)
		reader.Close()
		return nil, fmt.Errorf("AAC encoder not found")
	}

	stream := ffmpeg.AVFormatNewStream(outCtx, nil)
	if stream == nil {
		ffmpeg.AVFilterGraphFree(&graph)
		reader.Close()
		return nil, fmt.Errorf("failed to create audio stream")
	}

	encCtx := ffmpeg.AVCodecAllocContext3(codec)
	if encCtx == nil {
		ffmpeg.AVFilterGraphFree(&graph)
		reader.Close()
		return nil, fmt.Errorf("failed to allocate encoder context")
	}

	sampleRate, err := ffmpeg.AVBuffersinkGetSampleRate(sinkCtx)
	if err != nil {
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFilterGraphFree(&graph)
		reader.Close()
		return nil, fmt.Errorf("failed to get sample rate: %w", err)
	}

	encCtx.SetSampleFmt(ffmpeg.AVSampleFmtFltp)
	encCtx.SetSampleRate(sampleRate)
	ffmpeg.AVChannelLayoutDefault(encCtx.ChLayout(), 1)
	encCtx.SetBitRate(outputBitrate)
	encCtx.SetTimeBase(ffmpeg.AVBuffersinkGetTimeBase(sinkCtx))

	if outCtx.Oformat().Flags()&ffmpeg.AVFmtGlobalheader != 0 {
		encCtx.SetFlags(encCtx.Flags() | ffmpeg.AVCodecFlagGlobalHeader)
	}

	if _, err := ffmpeg.AVCodecOpen2(encCtx, codec, nil); err != nil {
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFilterGraphFree(&graph)
		reader.Close()
		return nil, fmt.Errorf("failed to open AAC encoder: %w", err)
	}

	if _, err := ffmpeg.AVCodecParametersFromContext(stream.Codecpar(), encCtx); err != nil {
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFilterGraphFree(&graph)
		reader.Close()
		return nil, fmt.Errorf("failed to copy encoder parameters: %w", err)
	}
	stream.SetTimeBase(encCtx.TimeBase())

	return &audioFeeder{
		reader:  reader,
		graph:   graph,
		srcCtx:  srcCtx,
		sinkCtx: sinkCtx,
		encCtx:  encCtx,
		stream:  stream,
		outCtx:  outCtx,
		frame:   ffmpeg.AVFrameAlloc(),
		packet:  ffmpeg.AVPacketAlloc(),
	}, nil
}

// PumpUntil encodes and writes audio packets until the audio stream has
// caught up to the given presentation time, or the source is exhausted.
func (f *audioFeeder) PumpUntil(until float64) error {
	for !f.done && f.written < until {
		frame, err := f.reader.ReadFrame()
		if err != nil {
			return fmt.Errorf("failed to read processed audio: %w", err)
		}

		if frame == nil {
			// Flush graph, then encoder
			if _, err := ffmpeg.AVBuffersrcAddFrameFlags(f.srcCtx, nil, 0); err != nil {
				return fmt.Errorf("failed to flush filter: %w", err)
			}
			if err := f.drainSink(); err != nil {
				return err
			}
			if _, err := ffmpeg.AVCodecSendFrame(f.encCtx, nil); err != nil {
				return fmt.Errorf("failed to flush encoder: %w", err)
			}
			if err := f.receivePackets(); err != nil {
				return err
			}
			f.done = true
			return nil
		}

		if _, err := ffmpeg.AVBuffersrcAddFrameFlags(f.srcCtx, frame, 0); err != nil {
			return fmt.Errorf("failed to add frame to filter: %w", err)
		}
		if err := f.drainSink(); err != nil {
			return err
		}
	}
	return nil
}

func (f *audioFeeder) drainSink() error {
	for {
		if _, err := ffmpeg.AVBuffersinkGetFrame(f.sinkCtx, f.frame); err != nil {
			if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
				return nil
			}
			return fmt.Errorf("failed to get filtered frame: %w", err)
		}

		f.frame.SetTimeBase(ffmpeg.AVBuffersinkGetTimeBase(f.sinkCtx))
		if f.frame.Pts() != ffmpeg.AVNoptsValue {
			f.frame.SetPts(
				ffmpeg.AVRescaleQ(f.frame.Pts(), f.frame.TimeBase(), f.encCtx.TimeBase()),
			)
		}

		if _, err := ffmpeg.AVCodecSendFrame(f.encCtx, f.frame); err != nil {
			ffmpeg.AVFrameUnref(f.frame)
			return fmt.Errorf("failed to send frame to encoder: %w", err)
		}
		ffmpeg.AVFrameUnref(f.frame)

		if err := f.receivePackets(); err != nil {
			return err
		}
	}
}

func (f *audioFeeder) receivePackets() error {
	for {
		ffmpeg.AVPacketUnref(f.packet)

		if _, err := ffmpeg.AVCodecReceivePacket(f.encCtx, f.packet); err != nil {
			if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
				return nil
			}
			return fmt.Errorf("failed to receive packet: %w", err)
		}

		f.packet.SetStreamIndex(f.stream.Index())
		ffmpeg.AVPacketRescaleTs(f.packet, f.encCtx.TimeBase(), f.stream.TimeBase())
		f.written = packetSeconds(f.packet, f.stream)

		if _, err := ffmpeg.AVInterleavedWriteFrame(f.outCtx, f.packet); err != nil {
			return fmt.Errorf("failed to write audio packet: %w", err)
		}
	}
}

// Close releases feeder resources. The shared output context is owned by
// the caller.
func (f *audioFeeder) Close() {
	if f.packet != nil {
		ffmpeg.AVPacketFree(&f.packet)
	}
	if f.frame != nil {
		ffmpeg.AVFrameFree(&f.frame)
	}
	if f.encCtx != nil {
		ffmpeg.AVCodecFreeContext(&f.encCtx)
	}
	if f.graph != nil {
		ffmpeg.AVFilterGraphFree(&f.graph)
	}
	if f.reader != nil {
		f.reader.Close()
	}
}
