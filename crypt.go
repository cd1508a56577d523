// pdfkit.dev/core - a PDF object model, content stream, font, and form
// calculation engine
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdfcore

// KeyKind distinguishes the two object-level byte streams an encryption
// handler transforms differently (strings use the same per-object key as
// streams, but some handlers apply different padding/metadata rules).
type KeyKind int

const (
	// KeyKindString marks bytes drawn from a PDF string object.
	KeyKindString KeyKind = iota
	// KeyKindStream marks bytes drawn from a PDF stream's body.
	KeyKindStream
)

// Adapter is the encryption capability the object reader (C4) and document
// writer (C7) consult for every string and stream they touch (spec.md
// §4.9). The core ships only NoopAdapter; a full Standard Security Handler
// (RC4/AES key derivation, password checking) is out of scope here -
// spec.md §1 treats it as an opaque collaborator.
type Adapter interface {
	// Transform encrypts or decrypts data belonging to the indirect object
	// (num, gen), depending on which direction the adapter was configured
	// for (a reader-side adapter decrypts; a writer-side adapter encrypts).
	Transform(num uint32, gen uint16, kind KeyKind, data []byte) ([]byte, error)

	// Unlock attempts to authenticate with password and reports whether it
	// succeeded. Adapters that require no authentication (including
	// NoopAdapter) always return true.
	Unlock(password []byte) bool
}

// NoopAdapter is the identity Adapter: it returns data unchanged and always
// unlocks. This is the Reader/Writer default when no Adapter is configured.
type NoopAdapter struct{}

func (NoopAdapter) Transform(num uint32, gen uint16, kind KeyKind, data []byte) ([]byte, error) {
	return data, nil
}

func (NoopAdapter) Unlock(password []byte) bool { return true }

// decryptObject applies r.Crypt to every String and Stream reachable from
// obj (recursively through Array/Dict), using num/gen as the owning
// indirect object identity (per ISO 32000-1, nested strings/streams
// inside a compound object are keyed by the containing indirect object,
// not by any reference used to reach them).
func (r *Reader) decryptObject(ref Reference, obj Object) Object {
	switch v := obj.(type) {
	case String:
		out, err := r.Crypt.Transform(ref.Num, ref.Gen, KeyKindString, []byte(v))
		if err != nil {
			return v
		}
		return String(out)
	case Array:
		out := make(Array, len(v))
		for i, item := range v {
			out[i] = r.decryptObject(ref, item)
		}
		return out
	case *Dict:
		out := NewDict()
		for _, k := range v.Keys() {
			out.Set(k, r.decryptObject(ref, v.Get(k)))
		}
		return out
	case *Stream:
		newDict, _ := r.decryptObject(ref, v.Dict).(*Dict)
		data, err := r.Crypt.Transform(ref.Num, ref.Gen, KeyKindStream, v.Data)
		if err != nil {
			data = v.Data
		}
		return &Stream{Dict: newDict, Data: data}
	default:
		return obj
	}
}
