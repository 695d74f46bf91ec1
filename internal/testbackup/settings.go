package testbackup

import (
	"sort"

	"github.com/matheus3301/wxread/internal/locate"
	"howett.net/plist"
)

// WriteSettings writes mmsetting.archive holding fields as a binary keyed
// archive. Nested maps become NSDictionary objects, strings NSString
// references; other values are stored inline.
func (s *Snapshot) WriteSettings(fields map[string]any) {
	s.t.Helper()
	data, err := KeyedArchive(fields)
	if err != nil {
		s.t.Fatal(err)
	}
	s.WriteFile(locate.Settings, data)
}

// KeyedArchive encodes root as an NSKeyedArchiver binary property list.
func KeyedArchive(root map[string]any) ([]byte, error) {
	a := &archiver{objects: []any{"$null"}, classes: map[string]plist.UID{}}
	rootRef := a.add(nil)
	obj := map[string]any{"$class": a.class("MMSettingInfo")}
	for _, k := range sortedKeys(root) {
		obj[k] = a.ref(root[k])
	}
	a.objects[rootRef] = obj

	return plist.Marshal(map[string]any{
		"$archiver": "NSKeyedArchiver",
		"$version":  100000,
		"$top":      map[string]any{"root": rootRef},
		"$objects":  a.objects,
	}, plist.BinaryFormat)
}

type archiver struct {
	objects []any
	classes map[string]plist.UID
}

func (a *archiver) add(obj any) plist.UID {
	a.objects = append(a.objects, obj)
	return plist.UID(len(a.objects) - 1)
}

func (a *archiver) class(name string) plist.UID {
	if uid, ok := a.classes[name]; ok {
		return uid
	}
	uid := a.add(map[string]any{"$classname": name, "$classes": []any{name, "NSObject"}})
	a.classes[name] = uid
	return uid
}

func (a *archiver) ref(v any) any {
	switch t := v.(type) {
	case nil:
		return plist.UID(0)
	case string:
		return a.add(t)
	case map[string]any:
		uid := a.add(nil)
		keys, values := make([]any, 0, len(t)), make([]any, 0, len(t))
		for _, k := range sortedKeys(t) {
			keys = append(keys, a.add(k))
			values = append(values, a.ref(t[k]))
		}
		a.objects[uid] = map[string]any{
			"$class":     a.class("NSDictionary"),
			"NS.keys":    keys,
			"NS.objects": values,
		}
		return uid
	case []any:
		uid := a.add(nil)
		items := make([]any, 0, len(t))
		for _, item := range t {
			items = append(items, a.ref(item))
		}
		a.objects[uid] = map[string]any{"$class": a.class("NSArray"), "NS.objects": items}
		return uid
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
