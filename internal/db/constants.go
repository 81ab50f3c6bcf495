package db

// timestampLayout matches SQLite's datetime() text form so stored timestamps
// stay comparable with its date functions. Values are always written in UTC.
const timestampLayout = "2006-01-02 15:04:05.000000000"
