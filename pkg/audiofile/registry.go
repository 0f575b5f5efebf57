package audiofile

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
)

type codecWithPriority struct {
	Priority int
	Codec
}

var (
	codecRegistryLocker sync.Mutex
	codecRegistry       = map[reflect.Type]codecWithPriority{}
)

// RegisterCodec makes the codec available to Load and Save. It is supposed
// to be called from init() of the codec package.
func RegisterCodec(
	priority int,
	codec Codec,
) {
	t := reflect.ValueOf(codec).Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	codecRegistryLocker.Lock()
	defer codecRegistryLocker.Unlock()
	if _, ok := codecRegistry[t]; ok {
		panic(fmt.Errorf("there is already registered a codec of type %v", t))
	}
	codecRegistry[t] = codecWithPriority{
		Priority: priority,
		Codec:    codec,
	}
}

// Codecs returns all the registered codecs, the highest priority first.
func Codecs() []Codec {
	codecRegistryLocker.Lock()
	var codecsWithPriorities []codecWithPriority
	for _, codec := range codecRegistry {
		codecsWithPriorities = append(codecsWithPriorities, codec)
	}
	codecRegistryLocker.Unlock()

	sort.Slice(codecsWithPriorities, func(i, j int) bool {
		if codecsWithPriorities[i].Priority != codecsWithPriorities[j].Priority {
			return codecsWithPriorities[i].Priority > codecsWithPriorities[j].Priority
		}
		return codecsWithPriorities[i].Name() < codecsWithPriorities[j].Name()
	})

	var codecs []Codec
	for _, codec := range codecsWithPriorities {
		codecs = append(codecs, codec.Codec)
	}
	return codecs
}

func codecsForPath(path string) []Codec {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	var result []Codec
	for _, codec := range Codecs() {
		for _, codecExt := range codec.Extensions() {
			if codecExt == ext {
				result = append(result, codec)
				break
			}
		}
	}
	return result
}

// DecoderForPath returns the highest priority decoder handling
// the extension of the path.
func DecoderForPath(path string) (Decoder, error) {
	for _, codec := range codecsForPath(path) {
		if decoder, ok := codec.(Decoder); ok {
			return decoder, nil
		}
	}
	return nil, fmt.Errorf("no registered decoder supports file '%s'", path)
}

// EncoderForPath returns the highest priority encoder handling
// the extension of the path.
func EncoderForPath(path string) (Encoder, error) {
	for _, codec := range codecsForPath(path) {
		if encoder, ok := codec.(Encoder); ok {
			return encoder, nil
		}
	}
	return nil, fmt.Errorf("no registered encoder supports file '%s'", path)
}
