package ftl

// sqliteVersionCap bounds the version string; the backend reports something
// like "3.31.1".
const sqliteVersionCap = 64

var dbStatsSchema = Schema{
	Command:   CmdDBStats,
	Fields:    []Kind{KindInt32, KindInt64, KindString},
	StringCap: sqliteVersionCap,
}

// DBStats describes the backend's long-term query database. A database that
// does not exist yet is reported as all zeros and an empty version.
type DBStats struct {
	Queries       int32  `json:"queries"`
	FileSize      int64  `json:"filesize"`
	SQLiteVersion string `json:"sqlite_version"`
}

func DecodeDBStats(r *Reader) (*DBStats, error) {
	v, err := ReadFixed(r, &dbStatsSchema)
	if err != nil {
		return nil, err
	}
	return &DBStats{
		Queries:       v[0].Int32(),
		FileSize:      v[1].Int64(),
		SQLiteVersion: v[2].Str(),
	}, nil
}
