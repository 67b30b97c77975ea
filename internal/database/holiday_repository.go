package database

// HolidayRepository reads the (bus, date) non-operational markers. Rows are
// managed by the admin system; the core only ever asks whether one exists.
type HolidayRepository struct {
	db DB
}

// NewHolidayRepository creates a new HolidayRepository
func NewHolidayRepository(db DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// Exists reports whether a holiday row exists for (bus, date)
func (r *HolidayRepository) Exists(busID string, date string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM holidays WHERE bus_id = $1 AND date = $2)`

	var exists bool
	if err := r.db.Get(&exists, query, busID, date); err != nil {
		return false, err
	}
	return exists, nil
}
