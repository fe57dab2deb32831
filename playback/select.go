package playback

// SelectVideoStream returns the lowest-index video stream. Streams are scanned
// in declaration order and the first match wins.
func SelectVideoStream(streams []StreamInfo) (StreamInfo, error) {
	for _, s := range streams {
		if s.MediaType == MediaTypeVideo {
			return s, nil
		}
	}
	return StreamInfo{}, ErrNoVideoStream
}
