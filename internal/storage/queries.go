package storage

// deskViewQuery picks each employee's most recent call (ties broken by id)
// and that call's client's most recent contract, so every employee yields
// exactly one row.
const deskViewQuery = `
SELECT
	e.id AS employee_id,
	e.first_name,
	e.last_name,
	l.id AS call_id,
	l.subject,
	l.sentiment,
	l.notes,
	l.active,
	l.started_at,
	c.first_name AS client_first_name,
	c.last_name AS client_last_name,
	l.phone AS phone,
	z.name AS zone_name,
	ct.signed_at AS contract_date,
	p.name AS package_name,
	p.price AS package_price,
	(SELECT COUNT(*) FROM calls cc WHERE cc.employee_id = e.id) AS call_count
FROM employees e
LEFT JOIN calls l ON l.id = (
	SELECT l2.id FROM calls l2
	WHERE l2.employee_id = e.id
	ORDER BY l2.started_at DESC, l2.id DESC
	LIMIT 1
)
LEFT JOIN clients c ON c.phone = l.phone
LEFT JOIN zones z ON z.id = c.zone_id
LEFT JOIN contracts ct ON ct.id = (
	SELECT ct2.id FROM contracts ct2
	WHERE ct2.phone = l.phone
	ORDER BY ct2.signed_at DESC, ct2.id DESC
	LIMIT 1
)
LEFT JOIN packages p ON p.id = ct.package_id
ORDER BY e.id`

const incidentViewQuery = `
SELECT
	r.id,
	r.incidence_type_id,
	r.zone_id,
	r.description,
	r.notes,
	r.created_at,
	it.name AS incidence_name,
	z.name AS zone_name
FROM incidents r
JOIN incidence_types it ON it.id = r.incidence_type_id
JOIN zones z ON z.id = r.zone_id
ORDER BY r.id`
