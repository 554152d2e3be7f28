package message

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Options is the ordered option collection of a message. Entries are kept
// in non-decreasing ID order; repeated IDs are distinct entries.
type Options []Option

// Append adds opt at the tail without looking at the order. Decoding relies on
// the wire order, which is ascending by construction.
func (options Options) Append(opt Option) Options {
	return append(options, opt)
}

// findPosition returns the index of the first option whose ID is greater than
// ID, or, when prepend is set, the first option whose ID is not smaller.
func (options Options) findPosition(ID OptionID, prepend bool) int {
	if prepend {
		return sort.Search(len(options), func(i int) bool { return options[i].ID >= ID })
	}
	return sort.Search(len(options), func(i int) bool { return options[i].ID > ID })
}

// Add inserts opt after every option with a smaller or equal ID, so repeated
// options keep the order in which they were added.
func (options Options) Add(opt Option) Options {
	idx := options.findPosition(opt.ID, false)
	options = append(options, Option{})
	copy(options[idx+1:], options[idx:])
	options[idx] = opt
	return options
}

// Remove drops every option with the given ID.
func (options Options) Remove(ID OptionID) Options {
	idxPre := options.findPosition(ID, true)
	idxPost := options.findPosition(ID, false)
	if idxPre == idxPost {
		return options
	}
	n := copy(options[idxPre:], options[idxPost:])
	for i := idxPre + n; i < len(options); i++ {
		options[i] = Option{}
	}
	return options[:idxPre+n]
}

// Find returns the half-open index range [first, last) holding options with the given ID.
func (options Options) Find(ID OptionID) (int, int, error) {
	idxPre := options.findPosition(ID, true)
	idxPost := options.findPosition(ID, false)
	if idxPre == idxPost {
		return -1, -1, fmt.Errorf("%w: %v", ErrOptionNotFound, ID)
	}
	return idxPre, idxPost, nil
}

func (options Options) HasOption(id OptionID) bool {
	_, _, err := options.Find(id)
	return err == nil
}

func (options Options) First() (Option, bool) {
	if len(options) == 0 {
		return Option{}, false
	}
	return options[0], true
}

func (options Options) Last() (Option, bool) {
	if len(options) == 0 {
		return Option{}, false
	}
	return options[len(options)-1], true
}

func (options Options) IsEmpty() bool {
	return len(options) == 0
}

// IsSorted reports whether the collection satisfies the ascending invariant.
func (options Options) IsSorted() bool {
	return sort.SliceIsSorted(options, func(i, j int) bool { return options[i].ID < options[j].ID })
}

// GetBytes returns the value of the first option with the given ID.
func (options Options) GetBytes(id OptionID) ([]byte, error) {
	firstIdx, _, err := options.Find(id)
	if err != nil {
		return nil, err
	}
	return options[firstIdx].Value, nil
}

func (options Options) GetString(id OptionID) (string, error) {
	v, err := options.GetBytes(id)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (options Options) GetUint32(id OptionID) (uint32, error) {
	v, err := options.GetBytes(id)
	if err != nil {
		return 0, err
	}
	val, _, err := DecodeUint32(v)
	return val, err
}

func (options Options) ContentFormat() (MediaType, error) {
	v, err := options.GetUint32(ContentFormat)
	return MediaType(v), err
}

// Path joins every URI-Path segment into an absolute path.
func (options Options) Path() (string, error) {
	firstIdx, lastIdx, err := options.Find(URIPath)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := firstIdx; i < lastIdx; i++ {
		b.WriteByte('/')
		b.Write(options[i].Value)
	}
	return b.String(), nil
}

// Queries returns every URI-Query value.
func (options Options) Queries() ([]string, error) {
	firstIdx, lastIdx, err := options.Find(URIQuery)
	if err != nil {
		return nil, err
	}
	queries := make([]string, 0, lastIdx-firstIdx)
	for i := firstIdx; i < lastIdx; i++ {
		queries = append(queries, string(options[i].Value))
	}
	return queries, nil
}

// Marshal encodes the options in their current order. The collection must be
// ascending; it is never reordered here. With a nil or short buffer the
// required size is returned together with ErrTooSmall.
func (options Options) Marshal(buf []byte) (int, error) {
	previousID := OptionID(0)
	length := 0

	for _, o := range options {
		// keep computing the length once the buffer runs out
		if length > len(buf) {
			buf = nil
		}
		var optionLength int
		var err error
		if buf != nil {
			optionLength, err = o.Marshal(buf[length:], previousID)
		} else {
			optionLength, err = o.Size(previousID)
			if err == nil {
				err = ErrTooSmall
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, ErrTooSmall):
			buf = nil
		default:
			return -1, err
		}
		previousID = o.ID
		length += optionLength
	}
	if buf == nil && length > 0 {
		return length, ErrTooSmall
	}
	return length, nil
}

// Unmarshal decodes options from data and appends them to the collection. It
// stops at the end of data or in front of the payload marker, which is left
// unconsumed.
func (options *Options) Unmarshal(data []byte) (int, error) {
	var prev OptionID
	if last, ok := options.Last(); ok {
		prev = last.ID
	}
	processed := 0
	for len(data) > 0 && data[0] != 0xff {
		var option Option
		proc, err := option.Unmarshal(data, prev)
		if err != nil {
			return -1, err
		}
		*options = options.Append(option)
		processed += proc
		data = data[proc:]
		prev = option.ID
	}
	return processed, nil
}
