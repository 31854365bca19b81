package storage

import "encoding/json"

// The database must stay readable by older and newer versions of the tool,
// so fields we don't know about are captured on load and re-emitted on save.

func captureExtra(data []byte, known any) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	enc, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	var emitted map[string]json.RawMessage
	if err := json.Unmarshal(enc, &emitted); err != nil {
		return nil, err
	}
	var extra map[string]json.RawMessage
	for key, val := range raw {
		if _, ok := emitted[key]; !ok {
			if extra == nil {
				extra = make(map[string]json.RawMessage)
			}
			extra[key] = val
		}
	}
	return extra, nil
}

func mergeExtra(enc []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return enc, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(enc, &m); err != nil {
		return nil, err
	}
	for key, val := range extra {
		if _, ok := m[key]; !ok {
			m[key] = val
		}
	}
	return json.Marshal(m)
}

type feedConfigAlias FeedConfig

func (f *FeedConfig) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*feedConfigAlias)(f)); err != nil {
		return err
	}
	extra, err := captureExtra(data, (*feedConfigAlias)(f))
	if err != nil {
		return err
	}
	f.extra = extra
	return nil
}

func (f *FeedConfig) MarshalJSON() ([]byte, error) {
	enc, err := json.Marshal((*feedConfigAlias)(f))
	if err != nil {
		return nil, err
	}
	return mergeExtra(enc, f.extra)
}

type feedStateAlias FeedState

func (st *FeedState) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*feedStateAlias)(st)); err != nil {
		return err
	}
	extra, err := captureExtra(data, (*feedStateAlias)(st))
	if err != nil {
		return err
	}
	st.extra = extra
	return nil
}

func (st *FeedState) MarshalJSON() ([]byte, error) {
	enc, err := json.Marshal((*feedStateAlias)(st))
	if err != nil {
		return nil, err
	}
	return mergeExtra(enc, st.extra)
}

type databaseAlias Database

func (db *Database) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*databaseAlias)(db)); err != nil {
		return err
	}
	extra, err := captureExtra(data, (*databaseAlias)(db))
	if err != nil {
		return err
	}
	db.extra = extra
	return nil
}

func (db *Database) MarshalJSON() ([]byte, error) {
	enc, err := json.Marshal((*databaseAlias)(db))
	if err != nil {
		return nil, err
	}
	return mergeExtra(enc, db.extra)
}
