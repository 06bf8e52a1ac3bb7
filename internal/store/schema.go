package store

// Dates (ORDER_DATE, DELIVERY_DATE) are naive calendar dates stored as
// YYYY-MM-DD text, matching the source of truth; no timezone conversion
// anywhere.
const schema = `
CREATE TABLE IF NOT EXISTS customers (
	CUSTOMER_ID TEXT PRIMARY KEY,
	NAME TEXT NOT NULL,
	EMAIL TEXT,
	PHONE TEXT,
	CITY TEXT,
	CREATED_AT DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS orders (
	ORDER_ID TEXT PRIMARY KEY,
	CUSTOMER_ID TEXT NOT NULL,
	PRODUCT_ID TEXT NOT NULL,
	ORDER_DATE TEXT NOT NULL,
	DELIVERY_DATE TEXT,
	STATUS TEXT NOT NULL,
	PAYMENT_METHOD TEXT,
	SHIPPING_ADDRESS TEXT,
	TOTAL_AMOUNT REAL,
	CREATED_AT DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(CUSTOMER_ID) REFERENCES customers(CUSTOMER_ID)
);
CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(CUSTOMER_ID);

CREATE TABLE IF NOT EXISTS products (
	PRODUCT_ID TEXT PRIMARY KEY,
	NAME TEXT NOT NULL,
	BRAND TEXT,
	CATEGORY TEXT,
	SUB_CATEGORY TEXT,
	DESCRIPTION TEXT,
	SPECIFICATIONS TEXT,
	PRICE REAL,
	RATING REAL,
	CREATED_AT DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS inventory (
	PRODUCT_ID TEXT PRIMARY KEY,
	STOCK_QUANTITY INTEGER NOT NULL DEFAULT 0,
	WAREHOUSE TEXT,
	UPDATED_AT DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(PRODUCT_ID) REFERENCES products(PRODUCT_ID)
);

CREATE TABLE IF NOT EXISTS policy_chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content TEXT NOT NULL,
	embedding BLOB, -- JSON-encoded []float32; NULL when no embedding model is configured
	source TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS transcript (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	customer_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	tool_name TEXT,
	tool_args TEXT,
	tool_call_id TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript(session_id, id);

CREATE TABLE IF NOT EXISTS system_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	level TEXT NOT NULL,
	component TEXT NOT NULL,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON system_logs(timestamp);
`
